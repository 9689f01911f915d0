package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL         string `koanf:"base_url"`
	DirectoryPath   string `koanf:"directory_path"`
	AttendancePath  string `koanf:"attendance_path"`
	ProfilePath     string `koanf:"profile_path"`
	PhotoPath       string `koanf:"photo_path"`
	LegislatureID   string `koanf:"legislature_id"`
	LegislatureName string `koanf:"legislature_name"`

	DirectoryPageSize int `koanf:"directory_page_size"`
	MaxDirectoryPages int `koanf:"max_directory_pages"`
	MaxMemberPages    int `koanf:"max_member_pages"`

	Parallelism     int           `koanf:"parallelism"`
	Delay           time.Duration `koanf:"delay"`
	RandomDelay     time.Duration `koanf:"random_delay"`
	Timeout         time.Duration `koanf:"timeout"`
	RunTimeout      time.Duration `koanf:"run_timeout"`
	MaxAttempts     int           `koanf:"max_attempts"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	RetryBackoffMax time.Duration `koanf:"retry_backoff_max"`
	DedupeMaxSize   int           `koanf:"dedupe_max_size"`
	UserAgent       string        `koanf:"user_agent"`
	AcceptLanguage  string        `koanf:"accept_language"`

	RespectRobotsTxt bool `koanf:"respect_robots_txt"`

	TopN               int     `koanf:"top_n"`
	NameMatchThreshold float64 `koanf:"name_match_threshold"`

	OutputFile   string `koanf:"output_file"`
	OutputFormat string `koanf:"output_format"` // json or dual
	MetricsAddr  string `koanf:"metrics_addr"`
	Verbose      bool   `koanf:"verbose"`
}

// DefaultConfig returns polite defaults for the 10th Parliament of Sri Lanka.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://www.parliament.lk",
		DirectoryPath:   "/en/members-of-parliament/mp-listing",
		AttendancePath:  "/en/members-of-parliament/house-attendance",
		ProfilePath:     "/en/members-of-parliament/mp-profile",
		PhotoPath:       "/uploads/images/members/profile_images/thumbs",
		LegislatureID:   "995",
		LegislatureName: "10th Parliament of the D.S.R. of Sri Lanka (2024-present)",

		DirectoryPageSize: 32,
		MaxDirectoryPages: 9,
		MaxMemberPages:    19,

		Parallelism:     1,
		Delay:           500 * time.Millisecond,
		RandomDelay:     0,
		Timeout:         30 * time.Second,
		RunTimeout:      0,
		MaxAttempts:     3,
		RetryBackoff:    time.Second,
		RetryBackoffMax: 8 * time.Second,
		DedupeMaxSize:   1024,
		UserAgent:       "Mozilla/5.0 (compatible; MPAttendanceTracker/1.1)",
		AcceptLanguage:  "en-US,en;q=0.9",

		RespectRobotsTxt: false,

		TopN:               20,
		NameMatchThreshold: 0.85,

		OutputFile:   "public/data/mp_attendance.json",
		OutputFormat: "json",
		MetricsAddr:  "",
		Verbose:      false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.DirectoryPath == "" || c.AttendancePath == "" {
		return fmt.Errorf("directory and attendance paths cannot be empty")
	}
	if c.LegislatureID == "" {
		return fmt.Errorf("legislature id cannot be empty")
	}
	if c.DirectoryPageSize <= 0 {
		return fmt.Errorf("directory page size must be positive")
	}
	if c.MaxDirectoryPages <= 0 {
		return fmt.Errorf("max directory pages must be positive")
	}
	if c.MaxMemberPages <= 0 {
		return fmt.Errorf("max member pages must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout cannot be negative")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top n must be positive")
	}
	if c.NameMatchThreshold < 0 || c.NameMatchThreshold > 1 {
		return fmt.Errorf("name match threshold must be within [0, 1]")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be json or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// Host returns the host name of BaseURL without port, or "" when it
// cannot be parsed.
func (c *Config) Host() string {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
