package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// TokenKind is the coarse token class consumed by the state machines.
type TokenKind int

const (
	OpenTag TokenKind = iota
	CloseTag
	Text
)

// Token is one element of the markup stream. Attrs is only set for OpenTag.
type Token struct {
	Kind  TokenKind
	Tag   string
	Attrs map[string]string
	Text  string
}

// Attr returns the named attribute or an empty string.
func (t Token) Attr(key string) string {
	return t.Attrs[key]
}

// HasClass reports whether the class attribute contains name.
func (t Token) HasClass(name string) bool {
	for _, class := range strings.Fields(t.Attrs["class"]) {
		if class == name {
			return true
		}
	}
	return false
}

// tokenStream walks markup left to right without building a tree.
// Comments and doctypes are skipped; self-closing tags yield an OpenTag
// followed by a CloseTag.
type tokenStream struct {
	z       *html.Tokenizer
	pending *Token
}

func newTokenStream(markup string) *tokenStream {
	return &tokenStream{z: html.NewTokenizer(strings.NewReader(markup))}
}

// Next returns the next token, or false once the input is exhausted.
func (s *tokenStream) Next() (Token, bool) {
	if s.pending != nil {
		tok := *s.pending
		s.pending = nil
		return tok, true
	}

	for {
		switch s.z.Next() {
		case html.ErrorToken:
			return Token{}, false
		case html.TextToken:
			return Token{Kind: Text, Text: string(s.z.Text())}, true
		case html.StartTagToken:
			return openToken(s.z.Token()), true
		case html.SelfClosingTagToken:
			raw := s.z.Token()
			s.pending = &Token{Kind: CloseTag, Tag: raw.Data}
			return openToken(raw), true
		case html.EndTagToken:
			name, _ := s.z.TagName()
			return Token{Kind: CloseTag, Tag: string(name)}, true
		}
	}
}

func openToken(raw html.Token) Token {
	attrs := make(map[string]string, len(raw.Attr))
	for _, a := range raw.Attr {
		attrs[a.Key] = a.Val
	}
	return Token{Kind: OpenTag, Tag: raw.Data, Attrs: attrs}
}

// Tokenize returns every token of markup in order.
func Tokenize(markup string) []Token {
	stream := newTokenStream(markup)
	var out []Token
	for {
		tok, ok := stream.Next()
		if !ok {
			return out
		}
		out = append(out, tok)
	}
}
