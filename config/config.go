package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

var ErrMissingSetting = errors.New("invalid configuration")

// Status names a quick-response status a reaction maps to.
const (
	StatusOnTrack     = "on_track"
	StatusMinorIssues = "minor_issues"
	StatusNeedsHelp   = "needs_help"
)

// DefaultReactionMap mirrors the prompt's legend.
var DefaultReactionMap = map[string]string{
	"white_check_mark": StatusOnTrack,
	"warning":          StatusMinorIssues,
	"rotating_light":   StatusNeedsHelp,
}

type Config struct {
	SlackBotToken      string
	SlackSigningSecret string
	ChannelID          string
	EscalationChannel  string

	StandupSchedule     string
	HealthCheckSchedule string
	ReminderInterval    time.Duration
	ResponseDeadline    string
	Location            *time.Location

	EscalationEmoji string
	MonitorEmoji    string
	ReactionMap     map[string]string
	StandupUsers    []string

	AutoEscalateAfter      time.Duration
	StandupRetention       time.Duration
	ProcessedEventCapacity int
	FallbackCapacity       int

	DatabaseURL string
	Coda        CodaConfig
	RedisURL    string

	GeminiAPIKey string
	GeminiModel  string

	NgrokAuthtoken string
	Port           string
	LogLevel       string
	LogFormat      string
}

type CodaConfig struct {
	APIToken       string
	DocID          string
	StandupTableID string
	HealthTableID  string
	BlockerTableID string
}

// Enabled reports whether enough is set to talk to Coda at all.
func (c CodaConfig) Enabled() bool {
	return c.APIToken != "" && c.DocID != ""
}

// Load reads the process environment. Every problem is reported at once.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	var problems []string

	str := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	required := func(key string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			problems = append(problems, key+" is required")
		}
		return v
	}
	duration := func(key, def string) time.Duration {
		raw := str(key, def)
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			problems = append(problems, fmt.Sprintf("%s must be a non-negative duration, got %q", key, raw))
			return 0
		}
		return d
	}
	integer := func(key string, def int) int {
		raw := str(key, strconv.Itoa(def))
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be a positive integer, got %q", key, raw))
			return def
		}
		return n
	}

	cfg := &Config{
		SlackBotToken:      required("SLACK_BOT_TOKEN"),
		SlackSigningSecret: str("SLACK_SIGNING_SECRET", ""),
		ChannelID:          required("SLACK_CHANNEL_ID"),
		EscalationChannel:  str("SLACK_ESCALATION_CHANNEL", "leads"),

		StandupSchedule:     str("STANDUP_SCHEDULE", "0 10 * * MON-FRI"),
		HealthCheckSchedule: str("HEALTH_CHECK_SCHEDULE", "0 9 * * MON-FRI"),
		ReminderInterval:    duration("REMINDER_INTERVAL", "2h"),
		ResponseDeadline:    str("RESPONSE_DEADLINE", "16:00"),

		EscalationEmoji: strings.Trim(str("ESCALATION_EMOJI", "sos"), ":"),
		MonitorEmoji:    strings.Trim(str("MONITOR_EMOJI", "clock4"), ":"),

		AutoEscalateAfter:      duration("AUTO_ESCALATE_AFTER", "0s"),
		StandupRetention:       duration("STANDUP_RETENTION", "48h"),
		ProcessedEventCapacity: integer("PROCESSED_EVENT_CAPACITY", 500),
		FallbackCapacity:       integer("FALLBACK_CAPACITY", 1000),

		DatabaseURL: str("DATABASE_URL", ""),
		Coda: CodaConfig{
			APIToken:       str("CODA_API_TOKEN", ""),
			DocID:          str("CODA_DOC_ID", ""),
			StandupTableID: str("CODA_STANDUP_TABLE_ID", ""),
			HealthTableID:  str("CODA_HEALTH_TABLE_ID", ""),
			BlockerTableID: str("CODA_BLOCKER_TABLE_ID", ""),
		},
		RedisURL: str("REDIS_URL", ""),

		GeminiAPIKey: str("GEMINI_API_KEY", ""),
		GeminiModel:  str("GEMINI_MODEL", "gemini-2.0-flash"),

		NgrokAuthtoken: str("NGROK_AUTHTOKEN", ""),
		Port:           str("PORT", "8080"),
		LogLevel:       str("LOG_LEVEL", "info"),
		LogFormat:      str("LOG_FORMAT", "logfmt"),
	}

	if cfg.ReminderInterval == 0 {
		problems = append(problems, "REMINDER_INTERVAL must be greater than zero")
	}

	tz := str("TIMEZONE", "America/New_York")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		problems = append(problems, fmt.Sprintf("TIMEZONE %q is not a valid IANA zone", tz))
		loc = time.UTC
	}
	cfg.Location = loc

	if _, err := time.Parse("15:04", cfg.ResponseDeadline); err != nil {
		problems = append(problems, fmt.Sprintf("RESPONSE_DEADLINE must use 24-hour HH:MM, got %q", cfg.ResponseDeadline))
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.StandupSchedule); err != nil {
		problems = append(problems, fmt.Sprintf("STANDUP_SCHEDULE %q: %v", cfg.StandupSchedule, err))
	}
	if cfg.HealthCheckEnabled() {
		if _, err := parser.Parse(cfg.HealthCheckSchedule); err != nil {
			problems = append(problems, fmt.Sprintf("HEALTH_CHECK_SCHEDULE %q: %v", cfg.HealthCheckSchedule, err))
		}
	}

	if cfg.EscalationEmoji == cfg.MonitorEmoji {
		problems = append(problems, "ESCALATION_EMOJI and MONITOR_EMOJI must differ")
	}

	cfg.ReactionMap = DefaultReactionMap
	if path := str("REACTION_MAP_FILE", ""); path != "" {
		m, err := LoadReactionMap(path)
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			cfg.ReactionMap = m
		}
	}

	if users := str("STANDUP_USERS", ""); users != "" {
		for _, u := range strings.Split(users, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.StandupUsers = append(cfg.StandupUsers, u)
			}
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(problems, "; "))
	}
	return cfg, nil
}

// HealthCheckEnabled is false when the schedule is "off".
func (c *Config) HealthCheckEnabled() bool {
	return c.HealthCheckSchedule != "" && !strings.EqualFold(c.HealthCheckSchedule, "off")
}

// LoadReactionMap reads a YAML document of reaction name -> status.
func LoadReactionMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("REACTION_MAP_FILE: %w", err)
	}
	return ParseReactionMap(data)
}

func ParseReactionMap(data []byte) (map[string]string, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("REACTION_MAP_FILE: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("REACTION_MAP_FILE: no reactions defined")
	}

	out := make(map[string]string, len(raw))
	hasHelp := false
	for reaction, status := range raw {
		switch status {
		case StatusOnTrack, StatusMinorIssues:
		case StatusNeedsHelp:
			hasHelp = true
		default:
			return nil, fmt.Errorf("REACTION_MAP_FILE: reaction %q has unknown status %q", reaction, status)
		}
		out[strings.Trim(reaction, ":")] = status
	}
	if !hasHelp {
		return nil, errors.New("REACTION_MAP_FILE: at least one reaction must map to needs_help")
	}
	return out, nil
}
