package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// Ensure tests don't inherit a PORT from the shell.
func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Exit(m.Run())
}

func setenv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	checks := []struct {
		name string
		ok   bool
	}{
		{"port", cfg.Port == "8080"},
		{"gin mode", cfg.GinMode == "release"},
		{"base path", cfg.APIBasePath == "/api/v1"},
		{"db", cfg.DBDriver == "sqlite" && cfg.DBPath == "karaoke.db" && cfg.DatabaseDSN() == "karaoke.db"},
		{"catalog", cfg.CatalogPath == "data/songs.csv" && cfg.CatalogEncoding == "utf-8"},
		{"orders", cfg.MaxActiveOrders == 3},
		{"bot off", cfg.TelegramToken == "" && cfg.AdminChatID == 0 && cfg.RedisURL == ""},
		{"session ttl", cfg.SessionTTL == 6*time.Hour && cfg.BotPollTimeout == 60},
		{"jwt", cfg.JWTSecret == "" && cfg.JWTTTL == 12*time.Hour},
		{"rate", cfg.RateRPS == 5 && cfg.RateBurst == 10},
		{"idempotency", cfg.IdempotencyTTL == 24*time.Hour},
		{"otel", !cfg.OTEL.Enabled && cfg.OTEL.ServiceName == "karaoked" && cfg.OTEL.SampleRatio == 1},
	}
	for _, c := range checks {
		if !c.ok {
			t.Errorf("default %s unexpected: %+v", c.name, cfg)
		}
	}
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	setenv(t, map[string]string{
		"PORT":                        "8088",
		"READ_TIMEOUT":                "2s",
		"READ_HEADER_TIMEOUT":         "1s",
		"WRITE_TIMEOUT":               "3s",
		"IDLE_TIMEOUT":                "4s",
		"MAX_HEADER_BYTES":            "8192",
		"GIN_MODE":                    "weird",
		"LOG_LEVEL":                   "warning",
		"LOG_PRETTY":                  "yes",
		"SWAGGER_ENABLED":             "on",
		"API_BASE_PATH":               "api/v1/",
		"DB_DRIVER":                   "SQLite",
		"DB_PATH":                     "db.sqlite",
		"CATALOG_PATH":                "songs.csv",
		"CATALOG_ENCODING":            "Windows-1251",
		"ADMIN_PASSWORD":              "s3cret",
		"JWT_SECRET":                  "k",
		"JWT_TTL":                     "30m",
		"MAX_ACTIVE_ORDERS":           "0",
		"TELEGRAM_TOKEN":              "123:abc",
		"ADMIN_CHAT_ID":               "-1001234567890",
		"REDIS_URL":                   "redis://localhost:6379/0",
		"SESSION_TTL":                 "2h",
		"BOT_POLL_TIMEOUT":            "30",
		"RATE_RPS":                    "x",
		"RATE_BURST":                  "nope",
		"CORS_ALLOWED_ORIGINS":        " https://a.com , , http://b ",
		"ENABLE_HSTS":                 "TRUE",
		"HSTS_MAX_AGE":                "24h",
		"IDEMPOTENCY_TTL":             "48h",
		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "otel:4317",
		"OTEL_EXPORTER_OTLP_INSECURE": "0",
		"OTEL_SERVICE_NAME":           "svc",
		"OTEL_TRACES_SAMPLER_ARG":     "0.75",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.ReadHeaderTimeout != time.Second ||
		cfg.WriteTimeout != 3*time.Second || cfg.IdleTimeout != 4*time.Second || cfg.MaxHeaderBytes != 8192 {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	// unknown gin mode and "warning" are normalized
	if cfg.GinMode != "release" || cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DBDriver != "sqlite" || cfg.DatabaseDSN() != "db.sqlite" {
		t.Fatalf("database unexpected: %q %q", cfg.DBDriver, cfg.DatabaseDSN())
	}
	if cfg.CatalogPath != "songs.csv" || cfg.CatalogEncoding != "cp1251" {
		t.Fatalf("catalog unexpected: %q %q", cfg.CatalogPath, cfg.CatalogEncoding)
	}
	if cfg.AdminPassword != "s3cret" || cfg.JWTSecret != "k" || cfg.JWTTTL != 30*time.Minute || cfg.MaxActiveOrders != 0 {
		t.Fatalf("admin/orders unexpected: %+v", cfg)
	}
	if cfg.TelegramToken != "123:abc" || cfg.AdminChatID != -1001234567890 || cfg.RedisURL != "redis://localhost:6379/0" ||
		cfg.SessionTTL != 2*time.Hour || cfg.BotPollTimeout != 30 {
		t.Fatalf("bot unexpected: %+v", cfg)
	}
	// unparsable numbers keep their defaults
	if cfg.RateRPS != 5 || cfg.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %v %v", cfg.RateRPS, cfg.RateBurst)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour || cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("security/idempotency unexpected: %+v", cfg)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"blank port", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"zero timeout", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"blank db path", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"unknown driver", map[string]string{"DB_DRIVER": "postgres"}, "DB_DRIVER"},
		{"mysql without dsn", map[string]string{"DB_DRIVER": "mysql"}, "DB_DSN"},
		{"libsql without dsn", map[string]string{"DB_DRIVER": "libsql"}, "DB_DSN"},
		{"blank catalog", map[string]string{"CATALOG_PATH": "  "}, "CATALOG_PATH must not be empty"},
		{"catalog encoding", map[string]string{"CATALOG_ENCODING": "koi8-r"}, "CATALOG_ENCODING"},
		{"jwt ttl", map[string]string{"JWT_TTL": "0s"}, "JWT_TTL"},
		{"long admin password", map[string]string{"ADMIN_PASSWORD": strings.Repeat("p", 73)}, "ADMIN_PASSWORD"},
		{"negative order cap", map[string]string{"MAX_ACTIVE_ORDERS": "-1"}, "MAX_ACTIVE_ORDERS"},
		{"session ttl", map[string]string{"SESSION_TTL": "0s"}, "SESSION_TTL"},
		{"poll timeout", map[string]string{"BOT_POLL_TIMEOUT": "0"}, "BOT_POLL_TIMEOUT"},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"negative hsts", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setenv(t, tc.env)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load() error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestMustLoad(t *testing.T) {
	if cfg := MustLoad(); cfg.APIBasePath == "" {
		t.Fatal("MustLoad returned an empty config")
	}

	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestDatabaseDSN_RemoteDrivers(t *testing.T) {
	for _, driver := range []string{"libsql", "mysql"} {
		t.Run(driver, func(t *testing.T) {
			setenv(t, map[string]string{"DB_DRIVER": driver, "DB_DSN": driver + "-dsn", "DB_PATH": "ignored.db"})
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if got := cfg.DatabaseDSN(); got != driver+"-dsn" {
				t.Fatalf("DatabaseDSN = %q", got)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "test.env")
	if err := os.WriteFile(f, []byte("KARAOKE_DOTENV_NEW=from-file\nKARAOKE_DOTENV_SET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KARAOKE_DOTENV_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("KARAOKE_DOTENV_NEW") })

	if err := LoadDotEnv(f, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("KARAOKE_DOTENV_NEW"); got != "from-file" {
		t.Fatalf("KARAOKE_DOTENV_NEW = %q", got)
	}
	if got := os.Getenv("KARAOKE_DOTENV_SET"); got != "from-env" {
		t.Fatalf("existing variable must win, got %q", got)
	}
}

func TestEnvParsers(t *testing.T) {
	setenv(t, map[string]string{
		"K_STR": "val", "K_EMPTY": "",
		"K_F": "3.14", "K_F_BAD": "nope",
		"K_I": "42", "K_I_BAD": "x",
		"K_I64": " -1001234567890 ", "K_I64_BAD": "1e3",
		"K_D": "150ms", "K_D_BAD": "zzz",
	})

	if getenv("K_STR", "d") != "val" || getenv("K_EMPTY", "d") != "d" || getenv("K_UNSET", "d") != "d" {
		t.Error("getenv")
	}
	if getfloat("K_F", 0) != 3.14 || getfloat("K_F_BAD", 1.5) != 1.5 {
		t.Error("getfloat")
	}
	if getint("K_I", 0) != 42 || getint("K_I_BAD", 7) != 7 {
		t.Error("getint")
	}
	if getint64("K_I64", 0) != -1001234567890 || getint64("K_I64_BAD", 9) != 9 {
		t.Error("getint64")
	}
	if getdur("K_D", time.Second) != 150*time.Millisecond || getdur("K_D_BAD", 2*time.Second) != 2*time.Second {
		t.Error("getdur")
	}
}

func TestGetbool(t *testing.T) {
	cases := map[string]bool{
		"1": true, "true": true, "TRUE": true, " yes ": true, "Y": true, "On": true,
		"0": false, "false": false, " no ": false, "N": false, "off": false,
	}
	for raw, want := range cases {
		t.Setenv("K_BOOL", raw)
		// the opposite default proves the value was parsed
		if got := getbool("K_BOOL", !want); got != want {
			t.Errorf("getbool(%q) = %v, want %v", raw, got, want)
		}
	}
	t.Setenv("K_BOOL", "maybe")
	if !getbool("K_BOOL", true) || getbool("K_BOOL", false) {
		t.Error("unrecognized values must keep the default")
	}
}

func TestSplitCSVAndBasePath(t *testing.T) {
	if splitCSV("") != nil {
		t.Error("splitCSV(\"\") should be nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("splitCSV = %#v", got)
	}

	paths := map[string]string{"": "/", " / ": "/", "v1": "/v1", "/v1/": "/v1", "/api/v1": "/api/v1"}
	for in, want := range paths {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
