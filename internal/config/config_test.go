package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Cache.TTL != Duration(5*time.Minute) {
		t.Fatalf("ttl = %v", cfg.Cache.TTL)
	}
	if cfg.NocoDB.Timeout != Duration(10*time.Second) {
		t.Fatalf("nocodb timeout = %v", cfg.NocoDB.Timeout)
	}
	if cfg.Page.DefaultLimit != 100 || cfg.Page.MaxLimit != 500 {
		t.Fatalf("page = %+v", cfg.Page)
	}
}

func TestEnvOverrides(t *testing.T) {
	v := viper.New()
	BindEnv(v)
	t.Setenv("INI_NOCODB_BASE_URL", "https://db.example.com")
	t.Setenv("INI_NOCODB_TABLE_ID", "tbl42")
	t.Setenv("INI_NOCODB_TOKEN", "s3cret")
	t.Setenv("INI_CACHE_TTL", "90s")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NocoDB.BaseURL != "https://db.example.com" || cfg.NocoDB.TableID != "tbl42" {
		t.Fatalf("nocodb = %+v", cfg.NocoDB)
	}
	if cfg.Cache.TTL != Duration(90*time.Second) {
		t.Fatalf("ttl = %v", cfg.Cache.TTL)
	}
	if err := cfg.ValidateData(); err != nil {
		t.Fatalf("validate data: %v", err)
	}
	if err := cfg.ValidateBot(); err == nil {
		t.Fatal("bot validation must fail without a telegram token")
	}
}

func TestYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ini.yml")
	content := `nocodb:
  base_url: https://db.example.com
  table_id: tblyaml
  token: from-file
telegram:
  token: bot-token
cache:
  ttl: 2m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	v := viper.New()
	v.Set("config", path)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NocoDB.TableID != "tblyaml" || cfg.Telegram.Token != "bot-token" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Cache.TTL != Duration(2*time.Minute) {
		t.Fatalf("ttl = %v", cfg.Cache.TTL)
	}
	if err := cfg.ValidateBot(); err != nil {
		t.Fatalf("validate bot: %v", err)
	}
	// File values survive, defaults fill the rest.
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
}

func TestValidateDataMissing(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateData(); err == nil {
		t.Fatal("empty nocodb settings must fail validation")
	}
}
