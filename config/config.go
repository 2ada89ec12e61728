package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort string
	AppEnv  string
	// Auth
	JWTSecret             string
	TokenTTLMinutes       int
	LoginMaxFailures      int
	LoginFailureWindowMin int
	RateLimitPerMinute    int
	AllowedOrigins        []string
	MetricsEnabled        bool
	// Proxies allowed to set X-Forwarded-For; empty means the socket peer is the client
	TrustedProxies []string
	// Database
	DBDriver       string
	DatabaseURI    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBMaxOpenConns int
	DBMaxIdleConns int
	// Redis for login throttling
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Uploads
	UploadDir                string
	UploadMaxSizeMB          int
	StorageBackend           string
	UploadCleanupIntervalMin int
	UploadOrphanGraceHours   int
	// S3 backend
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3PublicBaseURL   string
	S3AccessKeyID     string
	S3SecretAccessKey string
	// Admin bootstrap
	AdminUsername string
	AdminPassword string
	// SeedSkills fills an empty skills table with a starter set at startup
	SeedSkills bool
}

// IsProduction reports whether the service runs with production hardening.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, EnvProduction)
}

// UploadMaxBytes is the upload size cap in bytes.
func (c AppConfig) UploadMaxBytes() int64 {
	return int64(c.UploadMaxSizeMB) * 1024 * 1024
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := LoadFrom(filepath.Join("config", "config.json"), ".env")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// LoadFrom builds a configuration from the given JSON file and dotenv file.
// Precedence: JSON file -> defaults -> dotenv -> environment variables.
// Missing files are ignored.
func LoadFrom(jsonPath, dotenvPath string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(jsonPath, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", jsonPath, err)
	}

	applyDefaults(&c)

	// godotenv never overrides variables already present in the environment.
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return c, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			return c, errors.New("JWT_SECRET must be set in production")
		}
		secret, err := randomSecret()
		if err != nil {
			return c, err
		}
		log.Println("warning: JWT_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
		c.JWTSecret = secret
	}

	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return c, fmt.Errorf("invalid trusted proxy %q", p)
		}
	}

	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return c, errors.New("S3_BUCKET must be set when STORAGE_BACKEND=s3")
		}
	default:
		return c, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	return c, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// loadJSONConfig reads grouped JSON sections into out. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if f, ok := m[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.AppEnv = getString(app, "Env")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLMinutes = getInt(app, "TokenTTLMinutes")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.LoginMaxFailures = getInt(app, "LoginMaxFailures")
		out.LoginFailureWindowMin = getInt(app, "LoginFailureWindowMin")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.TrustedProxies = getStringSlice(app, "TrustedProxies")
		out.MetricsEnabled = getBool(app, "MetricsEnabled")
		out.SeedSkills = getBool(app, "SeedSkills")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		out.DBMaxOpenConns = getInt(dbs, "MaxOpenConns")
		out.DBMaxIdleConns = getInt(dbs, "MaxIdleConns")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisEnabled = getBool(rds, "Enabled")
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.GinMode = getString(lg, "GinMode")
		out.GinPath = getString(lg, "GinPath")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if up, ok := raw["upload"].(map[string]any); ok {
		out.UploadDir = getString(up, "Dir")
		out.UploadMaxSizeMB = getInt(up, "MaxSizeMB")
		out.StorageBackend = getString(up, "Backend")
		out.UploadCleanupIntervalMin = getInt(up, "CleanupIntervalMin")
		out.UploadOrphanGraceHours = getInt(up, "OrphanGraceHours")
	}

	if s3, ok := raw["s3"].(map[string]any); ok {
		out.S3Bucket = getString(s3, "Bucket")
		out.S3Region = getString(s3, "Region")
		out.S3Endpoint = getString(s3, "Endpoint")
		out.S3PublicBaseURL = getString(s3, "PublicBaseURL")
		out.S3AccessKeyID = getString(s3, "AccessKeyID")
		out.S3SecretAccessKey = getString(s3, "SecretAccessKey")
	}

	if adm, ok := raw["admin"].(map[string]any); ok {
		out.AdminUsername = getString(adm, "Username")
		out.AdminPassword = getString(adm, "Password")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.AppEnv == "" {
		c.AppEnv = EnvDevelopment
	}
	if c.TokenTTLMinutes == 0 {
		c.TokenTTLMinutes = 30
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if c.LoginMaxFailures == 0 {
		c.LoginMaxFailures = 5
	}
	if c.LoginFailureWindowMin == 0 {
		c.LoginFailureWindowMin = 15
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = defaultDBPort(c.DBDriver)
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "portfolio"
	}
	if c.DBMaxOpenConns == 0 {
		c.DBMaxOpenConns = 20
	}
	if c.DBMaxIdleConns == 0 {
		c.DBMaxIdleConns = 5
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.UploadMaxSizeMB == 0 {
		c.UploadMaxSizeMB = 10
	}
	if c.StorageBackend == "" {
		c.StorageBackend = "local"
	}
	if c.UploadCleanupIntervalMin == 0 {
		c.UploadCleanupIntervalMin = 60
	}
	if c.UploadOrphanGraceHours == 0 {
		c.UploadOrphanGraceHours = 24
	}
	if c.S3Region == "" {
		c.S3Region = "us-east-1"
	}
}

func defaultDBPort(driver string) string {
	switch driver {
	case "postgres":
		return "5432"
	default:
		return "3306"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := map[string]*string{
		"APP_PORT":             &c.AppPort,
		"APP_ENV":              &c.AppEnv,
		"JWT_SECRET":           &c.JWTSecret,
		"DB_DRIVER":            &c.DBDriver,
		"DATABASE_URI":         &c.DatabaseURI,
		"DB_HOST":              &c.DBHost,
		"DB_PORT":              &c.DBPort,
		"DB_USER":              &c.DBUser,
		"DB_PASSWORD":          &c.DBPassword,
		"DB_NAME":              &c.DBName,
		"REDIS_HOST":           &c.RedisHost,
		"REDIS_PASSWORD":       &c.RedisPassword,
		"GIN_MODE":             &c.GinMode,
		"GIN_PATH":             &c.GinPath,
		"LOG_LEVEL":            &c.LogLevel,
		"LOG_PATH":             &c.LogPath,
		"UPLOAD_DIR":           &c.UploadDir,
		"STORAGE_BACKEND":      &c.StorageBackend,
		"S3_BUCKET":            &c.S3Bucket,
		"S3_REGION":            &c.S3Region,
		"S3_ENDPOINT":          &c.S3Endpoint,
		"S3_PUBLIC_BASE_URL":   &c.S3PublicBaseURL,
		"S3_ACCESS_KEY_ID":     &c.S3AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &c.S3SecretAccessKey,
		"ADMIN_USERNAME":       &c.AdminUsername,
		"ADMIN_PASSWORD":       &c.AdminPassword,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOKEN_TTL_MINUTES":           &c.TokenTTLMinutes,
		"RATE_LIMIT_PER_MINUTE":       &c.RateLimitPerMinute,
		"LOGIN_MAX_FAILURES":          &c.LoginMaxFailures,
		"LOGIN_FAILURE_WINDOW_MIN":    &c.LoginFailureWindowMin,
		"DB_MAX_OPEN_CONNS":           &c.DBMaxOpenConns,
		"DB_MAX_IDLE_CONNS":           &c.DBMaxIdleConns,
		"REDIS_PORT":                  &c.RedisPort,
		"REDIS_DB":                    &c.RedisDB,
		"LOG_MAX_SIZE_MB":             &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":             &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":            &c.LogMaxAgeDays,
		"UPLOAD_MAX_SIZE_MB":          &c.UploadMaxSizeMB,
		"UPLOAD_CLEANUP_INTERVAL_MIN": &c.UploadCleanupIntervalMin,
		"UPLOAD_ORPHAN_GRACE_HOURS":   &c.UploadOrphanGraceHours,
	}
	for key, dst := range ints {
		v := getEnv(key, "")
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %q", key, v)
		}
		*dst = i
	}

	bools := map[string]*bool{
		"METRICS_ENABLED": &c.MetricsEnabled,
		"REDIS_ENABLED":   &c.RedisEnabled,
		"SEED_SKILLS":     &c.SeedSkills,
		"LOG_COMPRESS":    &c.LogCompress,
	}
	for key, dst := range bools {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v, ok := os.LookupEnv("TRUSTED_PROXIES"); ok {
		c.TrustedProxies = splitAndTrim(v)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
