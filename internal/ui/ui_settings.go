package ui

import (
	"errors"
	"log/slog"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/go-noor/internal/audio"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/engine"
	"github.com/tartampluch/go-noor/internal/geo"
	"github.com/zalando/go-keyring"
)

// settingsWidgets holds references to UI elements to simplify data retrieval during save.
type settingsWidgets struct {
	langSelect   *widget.Select
	entryPort    *NumericalEntry
	cityEntry    *widget.Entry
	placeSelect  *widget.Select
	entryLat     *NumericalEntry
	entryLng     *NumericalEntry
	keyEntry     *widget.Entry
	methodSelect *widget.Select
	schoolSelect *widget.Select
	entryFajr    *NumericalEntry
	entryIsha    *NumericalEntry
	voiceSelect  *widget.Select
	notifyChecks map[engine.Prayer]*widget.Check

	places []geo.Place
}

// ShowSettingsWindow displays the configuration dialog allowing users to manage settings.
func (app *NoorApp) ShowSettingsWindow() {
	if app.Window != nil {
		slog.Debug("Settings window already open, requesting focus", config.LogKeyComponent, config.CompUISet)
		app.Window.RequestFocus()
		return
	}

	slog.Info("Opening settings window", config.LogKeyComponent, config.CompUISet)
	w := app.App.NewWindow(app.GetMsg(config.TKeyWinSettings))
	app.Window = w

	sw := &settingsWidgets{notifyChecks: make(map[engine.Prayer]*widget.Check)}
	current := SettingsFromPreferences(app.Preferences)

	// --- 1. General ---
	sw.langSelect = widget.NewSelect(app.SupportedLanguages, nil)
	sw.langSelect.SetSelected(app.Preferences.StringWithFallback(config.PrefLanguage, config.DefaultLanguage))

	sw.entryPort = NewNumericalEntry()
	sw.entryPort.SetText(app.Preferences.StringWithFallback(config.PrefServerPort, config.DefaultPort))
	sw.entryPort.Validator = app.localizedValidator(validatePort)

	itemPort := widget.NewFormItem(app.GetMsg(config.TKeyLblPort), sw.entryPort)
	itemPort.HintText = app.GetMsg(config.TKeyHelpPort)
	generalCard := widget.NewCard(app.GetMsg(config.TKeyLblGeneral), "", widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblLanguage), sw.langSelect),
		itemPort,
	))

	// --- 2. Location ---
	locationCard := app.buildLocationCard(w, sw, current)

	// --- 3. Calculation ---
	calcCard := app.buildCalcCard(sw, current)

	// --- 4. Adhan & notifications ---
	adhanCard := app.buildAdhanCard(sw, current)

	// --- Actions ---
	saveAction := func() {
		for _, v := range []fyne.Validatable{sw.entryPort, sw.entryLat, sw.entryLng, sw.entryFajr, sw.entryIsha} {
			if err := v.Validate(); err != nil {
				dialog.ShowError(err, w)
				return
			}
		}
		app.saveSettings(sw, w)
	}

	btnSave := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnSave), theme.DocumentSaveIcon(), saveAction)
	btnSave.Importance = widget.HighImportance
	btnCancel := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnCancel), theme.CancelIcon(), func() { w.Close() })

	// --- Footer ---
	footerText, err := app.localize(config.TKeyLblFooter, map[string]any{"Version": config.Version})
	if err != nil {
		footerText = config.AppName + " " + config.Version
	}
	footerLabel := widget.NewLabel(footerText)
	footerLabel.Alignment = fyne.TextAlignCenter
	footerLabel.TextStyle = fyne.TextStyle{Italic: true}

	paddedContent := container.NewPadded(container.NewVBox(
		generalCard,
		locationCard,
		calcCard,
		adhanCard,
		container.NewGridWithColumns(config.LayoutColumnsDouble, btnCancel, btnSave),
		footerLabel,
	))

	w.SetContent(container.NewVScroll(paddedContent))
	w.Resize(fyne.NewSize(config.SettingsWindowWidth, paddedContent.MinSize().Height))
	w.SetOnClosed(func() { app.Window = nil })
	w.Show()
}

// localizedValidator turns the translation-key errors of check into
// user-facing messages.
func (app *NoorApp) localizedValidator(check func(string) error) fyne.StringValidator {
	return func(s string) error {
		if err := check(s); err != nil {
			return errors.New(app.GetMsg(err.Error()))
		}
		return nil
	}
}

// optional accepts an empty field, which leaves the location unset.
func optional(check func(string) error) func(string) error {
	return func(s string) error {
		if s == "" {
			return nil
		}
		return check(s)
	}
}

// buildLocationCard constructs the place search and coordinate entries.
func (app *NoorApp) buildLocationCard(w fyne.Window, sw *settingsWidgets, current engine.Settings) *widget.Card {
	sw.cityEntry = widget.NewEntry()
	sw.entryLat = NewDecimalEntry(true)
	sw.entryLng = NewDecimalEntry(true)
	sw.entryLat.Validator = app.localizedValidator(optional(func(s string) error { _, err := parseLatitude(s); return err }))
	sw.entryLng.Validator = app.localizedValidator(optional(func(s string) error { _, err := parseLongitude(s); return err }))

	if loc := current.Location; loc != nil {
		sw.cityEntry.SetText(loc.Name)
		sw.entryLat.SetText(strconv.FormatFloat(loc.Lat, 'f', -1, 64))
		sw.entryLng.SetText(strconv.FormatFloat(loc.Lng, 'f', -1, 64))
	}

	sw.keyEntry = widget.NewPasswordEntry()
	if key, err := keyring.Get(config.KeyringService, config.KeyringGeocoderUser); err == nil {
		sw.keyEntry.SetText(key)
	}

	sw.placeSelect = widget.NewSelect(nil, func(name string) {
		for _, p := range sw.places {
			if p.Name == name {
				sw.cityEntry.SetText(p.Name)
				sw.entryLat.SetText(strconv.FormatFloat(p.Lat, 'f', -1, 64))
				sw.entryLng.SetText(strconv.FormatFloat(p.Lng, 'f', -1, 64))
				return
			}
		}
	})
	sw.placeSelect.Hide()

	searchBtn := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnSearch), theme.SearchIcon(), func() {
		app.searchPlaces(w, sw)
	})
	if app.Geocoder == nil {
		searchBtn.Disable()
	}

	itemKey := widget.NewFormItem(app.GetMsg(config.TKeyLblAPIKey), sw.keyEntry)
	itemKey.HintText = app.GetMsg(config.TKeyHelpAPIKey)

	form := widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblCity), container.NewBorder(nil, nil, nil, searchBtn, sw.cityEntry)),
		widget.NewFormItem("", sw.placeSelect),
		widget.NewFormItem(app.GetMsg(config.TKeyLblLatitude), sw.entryLat),
		widget.NewFormItem(app.GetMsg(config.TKeyLblLongitude), sw.entryLng),
		itemKey,
	)
	return widget.NewCard(app.GetMsg(config.TKeyLblLocation), "", form)
}

// searchPlaces queries the geocoder off the UI thread and offers the results.
func (app *NoorApp) searchPlaces(w fyne.Window, sw *settingsWidgets) {
	g := *app.Geocoder
	g.APIKey = sw.keyEntry.Text
	query := sw.cityEntry.Text

	go func() {
		places, err := g.Search(app.Ctx, query, config.GeocodeLimit)
		fyne.Do(func() {
			if err == nil && len(places) == 0 {
				err = geo.ErrNoResult
			}
			if err != nil {
				slog.Warn(config.ErrGeocodeNoResult, config.LogKeyComponent, config.CompUISet, config.LogKeyError, err)
				dialog.ShowError(err, w)
				return
			}

			sw.places = places
			names := make([]string, 0, len(places))
			for _, p := range places {
				names = append(names, p.Name)
			}
			sw.placeSelect.SetOptions(names)
			sw.placeSelect.Show()
			sw.placeSelect.SetSelected(names[0])
		})
	}()
}

// buildCalcCard constructs the method, school and angle controls.
func (app *NoorApp) buildCalcCard(sw *settingsWidgets, current engine.Settings) *widget.Card {
	sw.methodSelect = widget.NewSelect(methodNames(engine.Methods), nil)
	if m, ok := engine.MethodByID(engine.Methods, current.Config.Method); ok {
		sw.methodSelect.SetSelected(m.Name)
	}
	sw.schoolSelect = widget.NewSelect(methodNames(engine.Schools), nil)
	if m, ok := engine.MethodByID(engine.Schools, current.Config.School); ok {
		sw.schoolSelect.SetSelected(m.Name)
	}

	sw.entryFajr = NewDecimalEntry(false)
	sw.entryFajr.SetText(formatAngle(current.Config.FajrAngle))
	sw.entryFajr.Validator = app.localizedValidator(func(s string) error { _, err := parseAngle(s); return err })
	sw.entryIsha = NewDecimalEntry(false)
	sw.entryIsha.SetText(formatAngle(current.Config.IshaAngle))
	sw.entryIsha.Validator = sw.entryFajr.Validator

	angles := container.NewGridWithColumns(config.LayoutColumnsDouble, sw.entryFajr, sw.entryIsha)
	itemAngles := widget.NewFormItem(app.GetMsg(config.TKeyLblFajrAngle)+" / "+app.GetMsg(config.TKeyLblIshaAngle), angles)
	itemAngles.HintText = app.GetMsg(config.TKeyHelpAngles)

	return widget.NewCard(app.GetMsg(config.TKeyLblCalc), "", widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblMethod), sw.methodSelect),
		widget.NewFormItem(app.GetMsg(config.TKeyLblSchool), sw.schoolSelect),
		itemAngles,
	))
}

// buildAdhanCard constructs the voice picker and per-prayer toggles.
func (app *NoorApp) buildAdhanCard(sw *settingsWidgets, current engine.Settings) *widget.Card {
	names := make([]string, 0, len(audio.DefaultCatalog))
	for _, v := range audio.DefaultCatalog {
		names = append(names, v.Name)
	}
	sw.voiceSelect = widget.NewSelect(names, nil)
	if v, ok := audio.DefaultCatalog.Lookup(current.VoiceID); ok {
		sw.voiceSelect.SetSelected(v.Name)
	}

	previewBtn := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnPreview), theme.MediaPlayIcon(), func() {
		voiceID := voiceIDByName(sw.voiceSelect.Selected)
		go func() {
			if _, err := app.Service.PreviewVoice(app.Ctx, voiceID); err != nil {
				slog.Error(config.MsgAudioFailed, config.LogKeyComponent, config.CompUISet, config.LogKeyError, err)
			}
		}()
	})

	checks := container.NewGridWithColumns(config.LayoutColumnsDouble)
	for _, p := range engine.NotifiablePrayers {
		c := widget.NewCheck(app.prayerName(p), nil)
		c.Checked = current.Enabled(p)
		sw.notifyChecks[p] = c
		checks.Add(c)
	}

	form := widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblVoice), container.NewBorder(nil, nil, nil, previewBtn, sw.voiceSelect)),
		widget.NewFormItem(app.GetMsg(config.TKeyLblNotif), checks),
	)
	return widget.NewCard(app.GetMsg(config.TKeyLblAdhan), "", form)
}

// saveSettings persists the form. The preference listener then pushes the
// new settings to the engine.
func (app *NoorApp) saveSettings(sw *settingsWidgets, w fyne.Window) {
	slog.Info("Saving preferences", config.LogKeyComponent, config.CompUISet)

	s := engine.DefaultSettings()

	lat, errLat := parseLatitude(sw.entryLat.Text)
	lng, errLng := parseLongitude(sw.entryLng.Text)
	if errLat == nil && errLng == nil {
		s.Location = &engine.Location{Lat: lat, Lng: lng, Name: sw.cityEntry.Text}
	}

	if m, ok := methodByName(engine.Methods, sw.methodSelect.Selected); ok {
		s.Config.Method = m.ID
	}
	if m, ok := methodByName(engine.Schools, sw.schoolSelect.Selected); ok {
		s.Config.School = m.ID
	}
	s.Config.FajrAngle, _ = parseAngle(sw.entryFajr.Text)
	s.Config.IshaAngle, _ = parseAngle(sw.entryIsha.Text)

	if id := voiceIDByName(sw.voiceSelect.Selected); id != "" {
		s.VoiceID = id
	}
	for p, c := range sw.notifyChecks {
		s.Notifications[p] = c.Checked
	}

	if sw.keyEntry.Text != "" {
		if err := keyring.Set(config.KeyringService, config.KeyringGeocoderUser, sw.keyEntry.Text); err != nil {
			slog.Error("Failed to save geocoder key to keyring", config.LogKeyError, err, config.LogKeyComponent, config.CompUISet)
		}
	}

	app.Preferences.SetString(config.PrefLanguage, sw.langSelect.Selected)
	app.Preferences.SetString(config.PrefServerPort, sw.entryPort.Text)
	StorePreferences(app.Preferences, s)

	app.UpdateLocalizer()
	app.RefreshTrayMenu()

	w.Close()
}

func methodNames(list []engine.Method) []string {
	names := make([]string, len(list))
	for i, m := range list {
		names[i] = m.Name
	}
	return names
}

func methodByName(list []engine.Method, name string) (engine.Method, bool) {
	for _, m := range list {
		if m.Name == name {
			return m, true
		}
	}
	return engine.Method{}, false
}

func voiceIDByName(name string) string {
	for _, v := range audio.DefaultCatalog {
		if v.Name == name {
			return v.ID
		}
	}
	return ""
}
