package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testConfigContent = `
server:
  host: "localhost"
  port: 8080
  mode: "test"
  read_timeout: 30s
  write_timeout: 30s
  idle_timeout: 60s
  max_header_bytes: 1048576

database:
  mysql:
    host: "localhost"
    port: 3306
    username: "test_user"
    password: "test_password"
    database: "test_db"
    charset: "utf8mb4"
    parse_time: true
    loc: "Local"
    max_idle_conns: 10
    max_open_conns: 100
    conn_max_lifetime: 3600s
    conn_max_idle_time: 1800s
    log_level: "info"
  redis:
    host: "localhost"
    port: 6379
    password: ""
    database: 0
    pool_size: 10
    min_idle_conns: 5
    dial_timeout: 5s
    read_timeout: 3s
    write_timeout: 3s
    pool_timeout: 4s
    idle_timeout: 300s

log:
  level: "info"
  format: "json"
  output: "stdout"
  file_path: "logs/app.log"
  max_size: 100
  max_backups: 5
  max_age: 30
  compress: true
  caller: true
  stack_trace: true

security:
  jwt:
    secret: "test_jwt_secret_key_at_least_32_chars"
    issuer: "astronhub-test"
    access_token_expire: 24h
    refresh_token_expire: 168h
    algorithm: "HS256"
  cors:
    enabled: true
    allow_origins: ["*"]
    allow_methods: ["GET", "POST", "PUT", "DELETE", "OPTIONS"]
    allow_headers: ["*"]
    expose_headers: ["Content-Length"]
    allow_credentials: true
    max_age: 12h
  rate_limit:
    enabled: true
    requests_per_second: 100
    burst_size: 200

engine:
  workflow:
    chat_url: "http://workflow.test/workflow/v1/debug/chat/completions"
    resume_url: "http://workflow.test/workflow/v1/debug/resume"
    connect_timeout: 5s
    read_timeout: 60s
    call_timeout: 5m
  spark:
    ws_url: "ws://spark.test/v1/chat"
    api_password: "test_api_password"
    connect_timeout: 5s
    read_timeout: 60s
    call_timeout: 5m
  enhance:
    base_url: "http://enhance.test"
    connect_timeout: 5s
    read_timeout: 60s
    call_timeout: 2m
  rpa:
    create_url: "http://rpa.test/api/v1/tasks"
    query_url: "http://rpa.test/api/v1/tasks/status"
    call_timeout: 30s

relay:
  tick: 500ms
  default_interval: 10s
  min_interval: 1s
  max_run_time: 5m
  terminal_ttl: 10m
  sweep_spec: "@every 1m"
  emitter_timeout: 8m

lock:
  prefix: "astronhub:lock"
  wait_time: 3s
  lease_time: 10s
  retry_interval: 50ms

space:
  free_user_limit: 5
  pro_user_limit: 20
  team_user_limit: 50
  invite_expire_days: 7
  expire_sweep_spec: "@every 10m"

app:
  name: "AstronHub Test"
  version: "1.0.0"
  environment: "test"
  debug: true
  timezone: "Asia/Shanghai"
  language: "zh-CN"
`

// writeTestConfig 写入临时配置文件并返回目录
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return tempDir
}

// TestLoadConfig 测试配置加载功能
func TestLoadConfig(t *testing.T) {
	tempDir := writeTestConfig(t, testConfigContent)

	config, err := LoadConfig(tempDir, "test")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// 验证配置值
	if config.Server.Host != "localhost" {
		t.Errorf("Expected server host 'localhost', got '%s'", config.Server.Host)
	}

	if config.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", config.Server.Port)
	}

	if config.Database.MySQL.Database != "test_db" {
		t.Errorf("Expected database name 'test_db', got '%s'", config.Database.MySQL.Database)
	}

	if config.Security.JWT.Secret != "test_jwt_secret_key_at_least_32_chars" {
		t.Errorf("Expected JWT secret, got '%s'", config.Security.JWT.Secret)
	}

	if config.Engine.Rpa.QueryURL != "http://rpa.test/api/v1/tasks/status" {
		t.Errorf("Expected rpa query url, got '%s'", config.Engine.Rpa.QueryURL)
	}

	if config.Relay.Tick != 500*time.Millisecond {
		t.Errorf("Expected relay tick 500ms, got %v", config.Relay.Tick)
	}

	if config.Lock.LeaseTime != 10*time.Second {
		t.Errorf("Expected lock lease time 10s, got %v", config.Lock.LeaseTime)
	}

	if config.App.Environment != "test" {
		t.Errorf("Expected environment 'test', got '%s'", config.App.Environment)
	}
}

// TestLoadConfigWithEnvVars 测试环境变量覆盖配置
func TestLoadConfigWithEnvVars(t *testing.T) {
	// 设置环境变量
	os.Setenv("ASTRONHUB_SERVER_PORT", "9090")
	os.Setenv("ASTRONHUB_MYSQL_HOST", "env_mysql_host")
	os.Setenv("ASTRONHUB_JWT_SECRET", "env_jwt_secret_key_at_least_32_chars")
	os.Setenv("ASTRONHUB_RPA_QUERY_URL", "http://rpa.env/api/v1/tasks/status")
	defer func() {
		os.Unsetenv("ASTRONHUB_SERVER_PORT")
		os.Unsetenv("ASTRONHUB_MYSQL_HOST")
		os.Unsetenv("ASTRONHUB_JWT_SECRET")
		os.Unsetenv("ASTRONHUB_RPA_QUERY_URL")
	}()

	tempDir := writeTestConfig(t, testConfigContent)

	config, err := LoadConfig(tempDir, "test")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// 验证环境变量覆盖了配置文件的值
	if config.Server.Port != 9090 {
		t.Errorf("Expected server port 9090 (from env), got %d", config.Server.Port)
	}

	if config.Database.MySQL.Host != "env_mysql_host" {
		t.Errorf("Expected mysql host 'env_mysql_host' (from env), got '%s'", config.Database.MySQL.Host)
	}

	if config.Security.JWT.Secret != "env_jwt_secret_key_at_least_32_chars" {
		t.Errorf("Expected JWT secret from env, got '%s'", config.Security.JWT.Secret)
	}

	if config.Engine.Rpa.QueryURL != "http://rpa.env/api/v1/tasks/status" {
		t.Errorf("Expected rpa query url from env, got '%s'", config.Engine.Rpa.QueryURL)
	}
}

// TestApplyDefaults 测试缺省配置填充
func TestApplyDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	if config.Relay.Tick != 500*time.Millisecond {
		t.Errorf("Expected default relay tick 500ms, got %v", config.Relay.Tick)
	}
	if config.Relay.DefaultInterval != 10*time.Second {
		t.Errorf("Expected default poll interval 10s, got %v", config.Relay.DefaultInterval)
	}
	if config.Relay.MaxRunTime != 5*time.Minute {
		t.Errorf("Expected default max run time 5m, got %v", config.Relay.MaxRunTime)
	}
	if config.Lock.Prefix != "astronhub:lock" {
		t.Errorf("Expected default lock prefix, got '%s'", config.Lock.Prefix)
	}
	if config.Lock.WaitTime != 3*time.Second {
		t.Errorf("Expected default lock wait 3s, got %v", config.Lock.WaitTime)
	}
	if config.Space.InviteExpireDays != 7 {
		t.Errorf("Expected default invite expire days 7, got %d", config.Space.InviteExpireDays)
	}
}

// TestConfigValidation 测试配置验证
func TestConfigValidation(t *testing.T) {
	validConfig := func() *Config {
		c := &Config{
			Server: ServerConfig{
				Host: "localhost",
				Port: 8080,
				Mode: "debug",
			},
			Database: DatabaseConfig{
				MySQL: MySQLConfig{
					Host:     "localhost",
					Database: "test_db",
				},
				Redis: RedisConfig{
					Host: "localhost",
				},
			},
			Security: SecurityConfig{
				JWT: JWTConfig{
					Secret: "test_jwt_secret_key_at_least_32_chars",
				},
			},
			Log: LogConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		}
		applyDefaults(c)
		return c
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid port",
			mutate: func(c *Config) {
				c.Server.Port = -1
			},
			expectError: true,
			errorMsg:    "invalid server port",
		},
		{
			name: "short jwt secret",
			mutate: func(c *Config) {
				c.Security.JWT.Secret = "short"
			},
			expectError: true,
			errorMsg:    "jwt secret must be at least 32 characters long",
		},
		{
			name: "relay tick exceeds min interval",
			mutate: func(c *Config) {
				c.Relay.Tick = 2 * time.Second
				c.Relay.MinInterval = time.Second
			},
			expectError: true,
			errorMsg:    "must not exceed min poll interval",
		},
		{
			name: "non-positive lock lease",
			mutate: func(c *Config) {
				c.Lock.LeaseTime = -time.Second
			},
			expectError: true,
			errorMsg:    "lock lease_time must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			err := validateConfig(config)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error message to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

// TestEnvManager 测试环境变量管理器
func TestEnvManager(t *testing.T) {
	em := NewEnvManager("HUBTEST")

	os.Setenv("HUBTEST_STRING_VAL", "test_value")
	os.Setenv("HUBTEST_INT_VAL", "42")
	os.Setenv("HUBTEST_BOOL_VAL", "true")
	os.Setenv("HUBTEST_DURATION_VAL", "5m")
	defer func() {
		os.Unsetenv("HUBTEST_STRING_VAL")
		os.Unsetenv("HUBTEST_INT_VAL")
		os.Unsetenv("HUBTEST_BOOL_VAL")
		os.Unsetenv("HUBTEST_DURATION_VAL")
	}()

	if val := em.GetString("STRING_VAL", "default"); val != "test_value" {
		t.Errorf("Expected 'test_value', got '%s'", val)
	}

	if val := em.GetInt("INT_VAL", 0); val != 42 {
		t.Errorf("Expected 42, got %d", val)
	}

	if val := em.GetBool("BOOL_VAL", false); val != true {
		t.Errorf("Expected true, got %t", val)
	}

	if val := em.GetDuration("DURATION_VAL", 0); val != 5*time.Minute {
		t.Errorf("Expected 5m, got %v", val)
	}

	// 测试不存在的环境变量
	if val := em.GetString("NON_EXISTENT", "default"); val != "default" {
		t.Errorf("Expected 'default', got '%s'", val)
	}

	if !em.Exists("STRING_VAL") {
		t.Error("Expected environment variable to exist")
	}

	if em.Exists("NON_EXISTENT") {
		t.Error("Expected environment variable to not exist")
	}
}

// TestConfigHelperMethods 测试配置辅助方法
func TestConfigHelperMethods(t *testing.T) {
	config := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		App: AppConfig{
			Environment: "development",
		},
		Database: DatabaseConfig{
			MySQL: MySQLConfig{
				Host:      "localhost",
				Port:      3306,
				Username:  "user",
				Password:  "pass",
				Database:  "test",
				Charset:   "utf8mb4",
				ParseTime: true,
				Loc:       "Local",
			},
			Redis: RedisConfig{
				Host: "localhost",
				Port: 6379,
			},
		},
	}

	// 测试服务器地址
	expectedAddr := "localhost:8080"
	if addr := config.Server.GetAddress(); addr != expectedAddr {
		t.Errorf("Expected address '%s', got '%s'", expectedAddr, addr)
	}

	// 测试环境判断
	if !config.App.IsDevelopment() {
		t.Error("Expected to be development environment")
	}

	if config.App.IsProduction() {
		t.Error("Expected not to be production environment")
	}

	// 测试MySQL DSN
	expectedDSN := "user:pass@tcp(localhost:3306)/test?charset=utf8mb4&parseTime=true&loc=Local"
	if dsn := config.Database.MySQL.GetMySQLDSN(); dsn != expectedDSN {
		t.Errorf("Expected DSN '%s', got '%s'", expectedDSN, dsn)
	}

	// 测试Redis地址
	expectedRedisAddr := "localhost:6379"
	if addr := config.Database.Redis.GetRedisAddress(); addr != expectedRedisAddr {
		t.Errorf("Expected Redis address '%s', got '%s'", expectedRedisAddr, addr)
	}
}
