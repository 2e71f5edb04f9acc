package environment_variables

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type EnvironmentVariable struct {
	HTTP_PORT string
	LOG_LEVEL string

	OFFLINE_ORIGIN_URL    string
	OFFLINE_CACHE_VERSION string
	OFFLINE_API_PREFIX    string
	OFFLINE_SYNC_TAG      string
	OFFLINE_SYNC_TIMEOUT  time.Duration

	CACHE_TYPE       string
	CACHE_URL        string
	CACHE_PASSWORD   string
	CACHE_DB         string
	CACHE_KEY_PREFIX string

	DB_TYPE                 string
	DB_SQLITE_PATH          string
	DB_POSTGRESQL_WRITE_DSN string
	DB_POSTGRESQL_READ1_DSN string

	ALLOWED_CORS_HOSTS []string
	ADMIN_JWT_SECRET   []byte

	SYNC_MAX_ATTEMPTS int
	SYNC_RETRY_BASE   time.Duration
}

var durationType = reflect.TypeOf(time.Duration(0))

// LoadFromEnv fills every field from the environment variable of the same
// name, then applies defaults for anything left empty.
func (ev *EnvironmentVariable) LoadFromEnv() {
	ev.loadFrom(os.Getenv)
	ev.applyDefaults()
}

func (ev *EnvironmentVariable) loadFrom(getenv func(string) string) {
	v := reflect.ValueOf(ev).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		envKey := field.Name
		envValue := getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setField(v.Field(i), envValue); err != nil {
			fmt.Printf("Invalid SYSENV %s: %v\n", envKey, err)
		}
	}
}

func setField(f reflect.Value, raw string) error {
	if f.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
		return nil
	}
	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	case reflect.Slice:
		switch f.Type().Elem().Kind() {
		case reflect.Uint8:
			f.SetBytes([]byte(raw))
		case reflect.String:
			parts := make([]string, 0)
			for _, p := range strings.Split(raw, ",") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
			f.Set(reflect.ValueOf(parts))
		default:
			return fmt.Errorf("unsupported slice type %s", f.Type())
		}
	default:
		return fmt.Errorf("unsupported kind %s", f.Kind())
	}
	return nil
}

func (ev *EnvironmentVariable) applyDefaults() {
	if ev.HTTP_PORT == "" {
		ev.HTTP_PORT = "8080"
	}
	if ev.OFFLINE_ORIGIN_URL == "" {
		ev.OFFLINE_ORIGIN_URL = "http://localhost:3000"
	}
	if ev.OFFLINE_CACHE_VERSION == "" {
		ev.OFFLINE_CACHE_VERSION = "v1"
	}
	if ev.OFFLINE_API_PREFIX == "" {
		ev.OFFLINE_API_PREFIX = "/api"
	}
	if ev.OFFLINE_SYNC_TAG == "" {
		ev.OFFLINE_SYNC_TAG = "sync-inspections"
	}
	if ev.OFFLINE_SYNC_TIMEOUT <= 0 {
		ev.OFFLINE_SYNC_TIMEOUT = 30 * time.Second
	}
	if ev.CACHE_TYPE == "" {
		ev.CACHE_TYPE = "memory"
	}
	if ev.CACHE_KEY_PREFIX == "" {
		ev.CACHE_KEY_PREFIX = "offline"
	}
	if ev.DB_TYPE == "" {
		ev.DB_TYPE = "sqlite"
	}
	if ev.DB_SQLITE_PATH == "" {
		ev.DB_SQLITE_PATH = "offline-gateway.db"
	}
	if ev.SYNC_MAX_ATTEMPTS <= 0 {
		ev.SYNC_MAX_ATTEMPTS = 3
	}
	if ev.SYNC_RETRY_BASE <= 0 {
		ev.SYNC_RETRY_BASE = 5 * time.Minute
	}
}

// Singleton
var EnvironmentVariables = EnvironmentVariable{}
