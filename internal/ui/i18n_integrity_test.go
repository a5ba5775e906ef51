package ui_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/engine"
)

func loadLocale(t *testing.T, lang string) map[string]interface{} {
	t.Helper()

	// Adjust path if running test from internal/ui or root
	path := filepath.Join("locales", "active."+lang+".json")
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		path = filepath.Join("..", "..", "internal", "ui", "locales", "active."+lang+".json")
		content, err = os.ReadFile(path)
	}
	require.NoErrorf(t, err, "Must load active.%s.json", lang)

	var jsonMap map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &jsonMap), "JSON must be valid")
	return jsonMap
}

// TestI18nIntegrity ensures that every translation key defined in config.go
// actually exists in each locale file.
func TestI18nIntegrity(t *testing.T) {
	keysToCheck := []string{
		config.TKeyNotifTitle,
		config.TKeyNotifBody,
		config.TKeyTrayNext,
		config.TKeyTrayStale,
		config.TKeyTrayNoLocation,
		config.TKeyTrayError,
		config.TKeyQiblah,
		config.TKeyMenuPreview,
		config.TKeyMenuStop,
		config.TKeyMenuRetry,
		config.TKeyMenuSettings,
		config.TKeyMenuTimetable,
		config.TKeyMenuFeed,
		config.TKeyNotifRetryOK,
		config.TKeyNotifRetryError,
		config.TKeyEvtSummary,
		config.TKeyWinSettings,
		config.TKeyWinTimetable,
		config.TKeyLblGeneral,
		config.TKeyLblLanguage,
		config.TKeyLblPort,
		config.TKeyHelpPort,
		config.TKeyLblLocation,
		config.TKeyLblCity,
		config.TKeyLblLatitude,
		config.TKeyLblLongitude,
		config.TKeyLblAPIKey,
		config.TKeyHelpAPIKey,
		config.TKeyBtnSearch,
		config.TKeyLblCalc,
		config.TKeyLblMethod,
		config.TKeyLblSchool,
		config.TKeyLblFajrAngle,
		config.TKeyLblIshaAngle,
		config.TKeyHelpAngles,
		config.TKeyLblAdhan,
		config.TKeyLblVoice,
		config.TKeyBtnPreview,
		config.TKeyLblNotif,
		config.TKeyBtnSave,
		config.TKeyBtnCancel,
		config.TKeyLblFooter,
		config.TKeyColDate,
		config.TKeyErrPortReq,
		config.TKeyErrPortNum,
		config.TKeyErrPortRange,
		config.TKeyErrLatitude,
		config.TKeyErrLongitude,
		config.TKeyErrAngle,
	}
	for _, p := range engine.AllPrayers {
		keysToCheck = append(keysToCheck, config.TKeyPrayerPrefix+strings.ToLower(string(p)))
	}

	definedKeys := make(map[string]bool, len(keysToCheck))
	for _, k := range keysToCheck {
		definedKeys[k] = true
	}

	for _, lang := range []string{"en", "fr"} {
		t.Run(lang, func(t *testing.T) {
			jsonMap := loadLocale(t, lang)

			for key := range definedKeys {
				_, exists := jsonMap[key]
				assert.Truef(t, exists, "Key '%s' defined in config.go is missing in active.%s.json", key, lang)
			}

			// Check for orphan keys in JSON (keys that exist in JSON but not in Go)
			for jsonKey := range jsonMap {
				if strings.HasPrefix(jsonKey, "_") {
					continue
				}
				if !definedKeys[jsonKey] {
					t.Logf("Warning: Key '%s' exists in JSON but is not checked in the test suite (might be unused)", jsonKey)
				}
			}
		})
	}
}

// TestI18nParity ensures both locales translate the same set of keys.
func TestI18nParity(t *testing.T) {
	en := loadLocale(t, "en")
	fr := loadLocale(t, "fr")

	for key := range en {
		assert.Containsf(t, fr, key, "Key '%s' is missing in active.fr.json", key)
	}
	for key := range fr {
		assert.Containsf(t, en, key, "Key '%s' is missing in active.en.json", key)
	}
}
