package ui

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// SetupI18n initializes the translation bundle and detects available languages.
func (app *NoorApp) SetupI18n() {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return
	}

	var detectedLangs []string

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		detectedLangs = append(detectedLangs, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
		)
	}

	app.SupportedLanguages = detectedLangs
	app.I18nBundle = bundle
	app.UpdateLocalizer()
}

// UpdateLocalizer refreshes the translator based on the user's language preference.
func (app *NoorApp) UpdateLocalizer() {
	if app.I18nBundle == nil {
		return
	}
	lang := app.Preferences.StringWithFallback(config.PrefLanguage, config.DefaultLanguage)

	app.locMu.Lock()
	app.localizer = i18n.NewLocalizer(app.I18nBundle, lang)
	app.locMu.Unlock()
}

// localize is safe to call from the dispatcher goroutine.
func (app *NoorApp) localize(key string, data map[string]any) (string, error) {
	app.locMu.RLock()
	loc := app.localizer
	app.locMu.RUnlock()

	if loc == nil {
		return "", fmt.Errorf("%s", config.ErrLocNotInit)
	}
	return loc.Localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data})
}

// GetMsg translates key, returning the key itself when it is missing.
func (app *NoorApp) GetMsg(key string) string {
	msg, err := app.localize(key, nil)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// prayerName is the localized display name of p.
func (app *NoorApp) prayerName(p engine.Prayer) string {
	key := config.TKeyPrayerPrefix + strings.ToLower(string(p))
	if msg := app.GetMsg(key); msg != key {
		return msg
	}
	return string(p)
}

// buildMessageFormatter localizes the dispatch notification.
func (app *NoorApp) buildMessageFormatter() func(p engine.Prayer, loc engine.Location) (string, string) {
	return func(p engine.Prayer, loc engine.Location) (string, string) {
		name := app.prayerName(p)
		place := loc.DisplayName()

		title, err := app.localize(config.TKeyNotifTitle, map[string]any{"Name": name})
		if err != nil || title == "" {
			title = fmt.Sprintf(config.FallbackNotifTitle, name)
		}
		body, err := app.localize(config.TKeyNotifBody, map[string]any{"Name": name, "Location": place})
		if err != nil || body == "" {
			body = fmt.Sprintf(config.FallbackNotifBody, name, place)
		}
		return title, body
	}
}

// buildSummaryFormatter localizes the timetable event titles.
func (app *NoorApp) buildSummaryFormatter() func(p engine.Prayer, loc engine.Location) string {
	return func(p engine.Prayer, loc engine.Location) string {
		name := app.prayerName(p)
		msg, err := app.localize(config.TKeyEvtSummary, map[string]any{"Name": name, "Location": loc.DisplayName()})
		if err != nil || msg == "" {
			return name
		}
		return msg
	}
}
