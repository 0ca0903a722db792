package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validTestConfig() *Config {
	return &Config{
		Environment: "development",
		Auth: AuthConfig{
			MasterKey:      "dev-master-key",
			MasterSalt:     "dev-salt",
			MasterVerifier: "derived",
			SessionTTL:     2 * time.Hour,
		},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validTestConfig().Validate())

	missingSalt := validTestConfig()
	missingSalt.Auth.MasterSalt = ""
	assert.Error(t, missingSalt.Validate())

	missingKey := validTestConfig()
	missingKey.Auth.MasterKey = ""
	assert.Error(t, missingKey.Validate(), "no master key and no KMS")

	sealedKey := validTestConfig()
	sealedKey.Auth.MasterKey = ""
	sealedKey.KMS.Enabled = true
	assert.NoError(t, sealedKey.Validate(), "KMS supplies the key")

	badVerifier := validTestConfig()
	badVerifier.Auth.MasterVerifier = "plaintext"
	assert.Error(t, badVerifier.Validate())

	argonWithoutHash := validTestConfig()
	argonWithoutHash.Auth.MasterVerifier = "argon2"
	assert.Error(t, argonWithoutHash.Validate())

	argonWithHash := validTestConfig()
	argonWithHash.Auth.MasterVerifier = "argon2"
	argonWithHash.Auth.MasterArgon2Hash = "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"
	assert.NoError(t, argonWithHash.Validate())

	prodWithoutOperator := validTestConfig()
	prodWithoutOperator.Environment = "production"
	assert.Error(t, prodWithoutOperator.Validate())
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	assert.Equal(t, "value", GetEnv("TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", GetEnv("TEST_STRING_MISSING", "fallback"))

	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("TEST_INT", 7))
	t.Setenv("TEST_INT_BAD", "not-a-number")
	assert.Equal(t, 7, getEnvInt("TEST_INT_BAD", 7))

	t.Setenv("TEST_BOOL", "true")
	assert.True(t, getEnvBool("TEST_BOOL", false))

	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Minute))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a, b ,c"))
	assert.Equal(t, []string{"localhost:9092"}, splitList("localhost:9092"))
	assert.Empty(t, splitList(" , "))
}
