/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"
)

type Config struct {
    AppEnv   string `yaml:"app_env"`
    LogLevel string `yaml:"log_level"`
    TZ       string `yaml:"tz"`

    JiraBaseURL    string `yaml:"jira_base_url"`
    JiraEmail      string `yaml:"jira_email"`
    JiraAPIToken   string `yaml:"jira_api_token"`
    JiraJQL        string `yaml:"jira_jql"`
    JiraFilterID   string `yaml:"jira_filter_id"`
    JiraFilterName string `yaml:"jira_filter_name"`
    JiraPageSize   int    `yaml:"jira_page_size"`
    JiraBulkSize   int    `yaml:"jira_bulk_size"`

    HTTPTimeout     time.Duration `yaml:"http_timeout"`
    Retry429Default time.Duration `yaml:"retry_429_default"`

    OutputFile string `yaml:"output_file"`

    SheetID               string `yaml:"gsheet_id"`
    SheetWorksheet        string `yaml:"gsheet_worksheet"`
    GoogleCredentialsFile string `yaml:"google_credentials_file"`
    SheetChunkRows        int    `yaml:"sheet_chunk_rows"`

    S3Bucket  string `yaml:"s3_bucket"`
    S3Key     string `yaml:"s3_key"`
    AWSRegion string `yaml:"aws_region"`

    TelegramToken   string  `yaml:"telegram_bot_token"`
    TelegramChatIDs []int64 `yaml:"telegram_chat_ids"`

    DBDSN    string `yaml:"db_dsn"`
    HTTPAddr string `yaml:"http_addr"`
    SyncCron string `yaml:"sync_cron"`
}

// Defaults are the values used when neither the file nor the environment sets one.
func Defaults() Config {
    return Config{
        AppEnv:          "dev",
        LogLevel:        "info",
        TZ:              "Local",
        JiraPageSize:    100,
        JiraBulkSize:    100,
        HTTPTimeout:     30 * time.Second,
        Retry429Default: 10 * time.Second,
        OutputFile:      "excels/jira_export.xlsx",
        SheetChunkRows:  1000,
        S3Key:           "jira_export.xlsx",
        HTTPAddr:        ":8080",
        SyncCron:        "0 * * * *",
    }
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" { return def }
    return v
}

func atoi(key string, def int) int {
    v := os.Getenv(key)
    if v == "" { return def }
    i, err := strconv.Atoi(v)
    if err != nil { return def }
    return i
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil {
        // bare numbers are seconds
        if n, err2 := strconv.Atoi(v); err2 == nil { return time.Duration(n) * time.Second }
        return def
    }
    return d
}

func parseInt64s(csv string) []int64 {
    if csv == "" { return nil }
    parts := strings.Split(csv, ",")
    out := make([]int64, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        n, err := strconv.ParseInt(p, 10, 64)
        if err == nil { out = append(out, n) }
    }
    return out
}

// Load layers defaults, an optional YAML file, a .env file and the process
// environment, later layers winning. A missing .env is not an error.
func Load(path string) (Config, error) {
    cfg := Defaults()
    if path != "" {
        data, err := os.ReadFile(path)
        if err != nil { return cfg, fmt.Errorf("read config %s: %w", path, err) }
        if err := yaml.Unmarshal(data, &cfg); err != nil { return cfg, fmt.Errorf("parse config %s: %w", path, err) }
    }
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        return cfg, fmt.Errorf("load .env: %w", err)
    }
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    cfg.AppEnv = getenv("APP_ENV", cfg.AppEnv)
    cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
    cfg.TZ = getenv("APP_TZ", cfg.TZ)

    cfg.JiraBaseURL = strings.TrimRight(getenv("JIRA_BASE_URL", cfg.JiraBaseURL), "/")
    cfg.JiraEmail = getenv("JIRA_EMAIL", cfg.JiraEmail)
    cfg.JiraAPIToken = getenv("JIRA_API_TOKEN", cfg.JiraAPIToken)
    cfg.JiraJQL = getenv("JIRA_JQL", cfg.JiraJQL)
    cfg.JiraFilterID = getenv("JIRA_FILTER_ID", cfg.JiraFilterID)
    cfg.JiraFilterName = getenv("JIRA_FILTER_NAME", cfg.JiraFilterName)
    cfg.JiraPageSize = atoi("JIRA_PAGE_SIZE", cfg.JiraPageSize)
    cfg.JiraBulkSize = atoi("JIRA_BULK_SIZE", cfg.JiraBulkSize)

    cfg.HTTPTimeout = dur("HTTP_TIMEOUT", cfg.HTTPTimeout)
    cfg.Retry429Default = dur("RETRY_429_DEFAULT", cfg.Retry429Default)

    cfg.OutputFile = getenv("OUTPUT_FILE", cfg.OutputFile)

    cfg.SheetID = getenv("GSHEET_ID", cfg.SheetID)
    cfg.SheetWorksheet = getenv("GSHEET_WORKSHEET", cfg.SheetWorksheet)
    cfg.GoogleCredentialsFile = getenv("GOOGLE_CREDENTIALS_FILE", cfg.GoogleCredentialsFile)
    cfg.SheetChunkRows = atoi("SHEET_CHUNK_ROWS", cfg.SheetChunkRows)

    cfg.S3Bucket = getenv("S3_BUCKET", cfg.S3Bucket)
    cfg.S3Key = getenv("S3_KEY", cfg.S3Key)
    cfg.AWSRegion = getenv("AWS_REGION", cfg.AWSRegion)

    cfg.TelegramToken = getenv("TELEGRAM_BOT_TOKEN", cfg.TelegramToken)
    if ids := parseInt64s(os.Getenv("TELEGRAM_CHAT_IDS")); len(ids) > 0 { cfg.TelegramChatIDs = ids }

    cfg.DBDSN = getenv("DB_DSN", cfg.DBDSN)
    cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
    cfg.SyncCron = getenv("SYNC_CRON", cfg.SyncCron)
}

// Validate checks the tracker credentials every run needs.
func (c Config) Validate() error {
    var missing []string
    if c.JiraBaseURL == "" { missing = append(missing, "JIRA_BASE_URL") }
    if c.JiraEmail == "" { missing = append(missing, "JIRA_EMAIL") }
    if c.JiraAPIToken == "" { missing = append(missing, "JIRA_API_TOKEN") }
    if len(missing) > 0 {
        return domain.Configf("missing env vars: %s", strings.Join(missing, ", "))
    }
    if c.JiraPageSize <= 0 || c.JiraBulkSize <= 0 {
        return domain.Configf("page and bulk sizes must be positive")
    }
    return nil
}

// RemoteSheetEnabled reports whether the hosted sheet sink has what it needs.
func (c Config) RemoteSheetEnabled() bool {
    return c.SheetID != "" && c.GoogleCredentialsFile != ""
}

// Location resolves TZ, falling back to time.Local.
func (c Config) Location() *time.Location {
    if c.TZ == "" || c.TZ == "Local" { return time.Local }
    loc, err := time.LoadLocation(c.TZ)
    if err != nil { return time.Local }
    return loc
}
