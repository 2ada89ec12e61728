package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	dir := t.TempDir()

	c, err := LoadFrom(filepath.Join(dir, "missing.json"), filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8000", c.AppPort)
	assert.Equal(t, EnvDevelopment, c.AppEnv)
	assert.Equal(t, 30, c.TokenTTLMinutes)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, "local", c.StorageBackend)
	assert.Equal(t, int64(10*1024*1024), c.UploadMaxBytes())
	assert.Equal(t, "s3cret", c.JWTSecret)
}

func TestLoadFrom_JSONThenEnv(t *testing.T) {
	dir := t.TempDir()
	js := writeFile(t, dir, "config.json", `{
		"app": {"AppPort": "9000", "JWTSecret": "from-json", "TokenTTLMinutes": 5},
		"database": {"Driver": "postgres", "DBName": "blog"},
		"upload": {"Dir": "/srv/uploads", "MaxSizeMB": 3},
		"admin": {"Username": "root"}
	}`)
	t.Setenv("APP_PORT", "9100")
	t.Setenv("UPLOAD_MAX_SIZE_MB", "4")

	c, err := LoadFrom(js, "")
	require.NoError(t, err)

	assert.Equal(t, "9100", c.AppPort)
	assert.Equal(t, "from-json", c.JWTSecret)
	assert.Equal(t, 5, c.TokenTTLMinutes)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "5432", c.DBPort)
	assert.Equal(t, "blog", c.DBName)
	assert.Equal(t, "/srv/uploads", c.UploadDir)
	assert.Equal(t, 4, c.UploadMaxSizeMB)
	assert.Equal(t, "root", c.AdminUsername)
}

func TestLoadFrom_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "JWT_SECRET=from-dotenv\nADMIN_USERNAME=dotenv-admin\n")
	t.Setenv("JWT_SECRET", "from-env")
	// ensure the variable is unset so the dotenv value applies
	t.Setenv("ADMIN_USERNAME", "")
	os.Unsetenv("ADMIN_USERNAME")

	c, err := LoadFrom(filepath.Join(dir, "none.json"), env)
	require.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("ADMIN_USERNAME") })

	assert.Equal(t, "from-env", c.JWTSecret)
	assert.Equal(t, "dotenv-admin", c.AdminUsername)
}

func TestLoadFrom_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("JWT_SECRET", "")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "none.json"), "")
	require.Error(t, err)
}

func TestLoadFrom_DevelopmentGeneratesSecret(t *testing.T) {
	t.Setenv("APP_ENV", EnvDevelopment)
	t.Setenv("JWT_SECRET", "")

	a, err := LoadFrom(filepath.Join(t.TempDir(), "none.json"), "")
	require.NoError(t, err)
	b, err := LoadFrom(filepath.Join(t.TempDir(), "none.json"), "")
	require.NoError(t, err)

	assert.Len(t, a.JWTSecret, 64)
	assert.NotEqual(t, a.JWTSecret, b.JWTSecret)
}

func TestLoadFrom_InvalidInteger(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("TOKEN_TTL_MINUTES", "soon")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "none.json"), "")
	require.Error(t, err)
}

func TestLoadFrom_S3NeedsBucket(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "none.json"), "")
	require.Error(t, err)
}

func TestLoadFrom_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	js := writeFile(t, dir, "config.json", "{not json")

	_, err := LoadFrom(js, "")
	require.Error(t, err)
}

func TestLoadFrom_TrustedProxies(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	none := filepath.Join(t.TempDir(), "none.json")

	t.Setenv("TRUSTED_PROXIES", "")
	c, err := LoadFrom(none, "")
	require.NoError(t, err)
	assert.Empty(t, c.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")
	c, err = LoadFrom(none, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, c.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "proxy.internal")
	_, err = LoadFrom(none, "")
	require.Error(t, err)
}

func TestLoadFrom_SeedSkills(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("SEED_SKILLS", "true")

	c, err := LoadFrom(filepath.Join(t.TempDir(), "none.json"), "")
	require.NoError(t, err)
	assert.True(t, c.SeedSkills)
}
