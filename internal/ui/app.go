package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/engine"
	"github.com/tartampluch/go-noor/internal/geo"
	"github.com/tartampluch/go-noor/internal/server"
)

// NoorApp is the tray shell: it keeps the engine in step with the user's
// preferences, shows the next prayer and publishes the timetable feed.
type NoorApp struct {
	App         fyne.App
	Window      fyne.Window
	Preferences fyne.Preferences
	I18nBundle  *i18n.Bundle
	Ctx         context.Context

	Service  *engine.Service
	Server   *server.FeedServer
	Feed     *engine.FeedBuilder
	Geocoder *geo.Geocoder
	Clock    engine.Clock

	Tray desktop.App
	Menu *fyne.Menu

	TrayStatusItem    *fyne.MenuItem
	TrayQiblahItem    *fyne.MenuItem
	TrayPreviewItem   *fyne.MenuItem
	TrayRetryItem     *fyne.MenuItem
	TrayTimetableItem *fyne.MenuItem
	TrayFeedItem      *fyne.MenuItem
	TraySettingsItem  *fyne.MenuItem

	SupportedLanguages []string
	configChan         chan string

	locMu     sync.RWMutex
	localizer *i18n.Localizer

	TimetableMut    sync.RWMutex
	Timetable       []engine.PrayerTimeTable
	timetableWindow fyne.Window
}

// NewNoorApp constructs the shell and injects the localized formatters
// into the engine.
func NewNoorApp(a fyne.App, ctx context.Context, svc *engine.Service, srv *server.FeedServer) *NoorApp {
	a.SetIcon(theme.HistoryIcon())

	app := &NoorApp{
		App:                a,
		Preferences:        a.Preferences(),
		Ctx:                ctx,
		Service:            svc,
		Server:             srv,
		Clock:              engine.RealClock{},
		SupportedLanguages: config.SupportedLanguages,
		configChan:         make(chan string, config.ChannelBufferSize),
	}
	app.Feed = &engine.FeedBuilder{Clock: app.Clock, FormatSummary: app.buildSummaryFormatter()}
	if svc != nil && svc.Dispatcher != nil {
		svc.Dispatcher.FormatMessage = app.buildMessageFormatter()
	}
	return app
}

// Run launches the background services and the main UI loop.
func (app *NoorApp) Run() {
	app.SetupI18n()
	app.watchPreferences()

	go func() {
		if err := app.Server.Start(app.Ctx); err != nil {
			slog.Error(config.ErrServerStartup,
				config.LogKeyError, err,
				config.LogKeyComponent, config.CompUI)
		}
	}()

	if desk, ok := app.App.(desktop.App); ok {
		app.Tray = desk
		app.Tray.SetSystemTrayIcon(app.App.Icon())
		app.setupTrayMenu()
	} else {
		slog.Warn(config.ErrTrayNotSupported, config.LogKeyComponent, config.CompUI)
	}

	go app.backgroundWorker()
	app.App.Run()
}

// watchPreferences wakes the worker whenever a preference changes.
func (app *NoorApp) watchPreferences() {
	app.Preferences.AddChangeListener(func() {
		select {
		case app.configChan <- config.KeyActiveSettings:
		default:
		}
	})
}

func (app *NoorApp) setupTrayMenu() {
	app.TrayStatusItem = fyne.NewMenuItem(config.FallbackTrayLabel, func() {
		app.ShowTimetableWindow()
	})
	app.TrayQiblahItem = fyne.NewMenuItem("", nil)
	app.TrayQiblahItem.Disabled = true

	app.TrayPreviewItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuPreview), func() {
		go app.togglePreview()
	})
	app.TrayRetryItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuRetry), func() {
		go app.retrySync()
	})
	app.TrayTimetableItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuTimetable), func() {
		app.ShowTimetableWindow()
	})
	app.TrayFeedItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuFeed), func() {
		app.openFeed()
	})
	app.TraySettingsItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuSettings), func() {
		app.ShowSettingsWindow()
	})

	app.Menu = fyne.NewMenu(config.AppName,
		app.TrayStatusItem,
		app.TrayQiblahItem,
		fyne.NewMenuItemSeparator(),
		app.TrayPreviewItem,
		app.TrayRetryItem,
		fyne.NewMenuItemSeparator(),
		app.TrayTimetableItem,
		app.TrayFeedItem,
		app.TraySettingsItem,
	)
	app.updateQiblah()

	if app.Tray != nil {
		app.Tray.SetSystemTrayMenu(app.Menu)
	}
}

// RefreshTrayMenu updates localized labels in the tray menu.
func (app *NoorApp) RefreshTrayMenu() {
	if app.Menu == nil {
		return
	}
	app.TrayPreviewItem.Label = app.GetMsg(config.TKeyMenuPreview)
	if app.Service.Audio != nil && app.Service.Audio.PreviewHandle() != nil {
		app.TrayPreviewItem.Label = app.GetMsg(config.TKeyMenuStop)
	}
	app.TrayRetryItem.Label = app.GetMsg(config.TKeyMenuRetry)
	app.TrayTimetableItem.Label = app.GetMsg(config.TKeyMenuTimetable)
	app.TrayFeedItem.Label = app.GetMsg(config.TKeyMenuFeed)
	app.TraySettingsItem.Label = app.GetMsg(config.TKeyMenuSettings)
	app.updateQiblah()
	app.Menu.Refresh()
}

// backgroundWorker applies preference changes, follows the next-prayer
// stream and republishes the feed when the date rolls over.
func (app *NoorApp) backgroundWorker() {
	log := slog.With(config.LogKeyComponent, config.CompWorker)
	log.Info(config.MsgWorkerStart)

	app.restoreStoredLocation()
	app.applyPreferences()
	app.refreshFeed()

	updates := app.Service.SubscribeNextPrayer(app.Ctx)
	feedDate := app.today()

	for {
		select {
		case <-app.Ctx.Done():
			log.Info(config.MsgWorkerStop)
			return

		case <-app.configChan:
			app.applyPreferences()
			app.refreshFeed()
			feedDate = app.today()

		case u, ok := <-updates:
			if !ok {
				log.Info(config.MsgWorkerStop)
				return
			}
			fyne.Do(func() { app.updateTrayStatus(u) })
			if d := app.today(); d != feedDate {
				feedDate = d
				app.refreshFeed()
			}
		}
	}
}

// restoreStoredLocation copies a location found in the offline store into
// empty preferences, so a reinstalled shell keeps its place.
func (app *NoorApp) restoreStoredLocation() {
	if app.Preferences.Bool(config.PrefHasLocation) {
		return
	}
	if stored := app.Service.Settings(); stored.Location != nil {
		StorePreferences(app.Preferences, stored)
	}
}

// applyPreferences pushes the preferences to the engine and arms or
// disarms the dispatcher accordingly.
func (app *NoorApp) applyPreferences() {
	s := SettingsFromPreferences(app.Preferences)
	log := slog.With(config.LogKeyComponent, config.CompUI)

	if err := app.Service.ApplySettings(app.Ctx, s); err != nil {
		log.Error(config.ErrSettingsPersist, config.LogKeyError, err)
		return
	}

	if s.Location == nil {
		app.Service.DisarmDispatcher()
	} else if err := app.Service.ArmWithSettings(app.Ctx); err != nil {
		log.Error(config.ErrDispatcherNotArmed, config.LogKeyError, err)
	}

	app.UpdateLocalizer()
	fyne.Do(app.RefreshTrayMenu)
}

// refreshFeed rebuilds the timetable for the feed days and publishes it.
// On failure the previous feed stays in place.
func (app *NoorApp) refreshFeed() error {
	log := slog.With(config.LogKeyComponent, config.CompUI)

	tables, err := app.Service.Timetable(app.Ctx, config.FeedDays)
	if err != nil && !errors.Is(err, engine.ErrNoLocation) {
		log.Warn(config.MsgFeedFailed, config.LogKeyError, err)
		return err
	}

	settings := app.Service.Settings()
	data, events, err := app.Feed.Build(tables, settings.Enabled)
	if err != nil {
		log.Error(config.MsgFeedFailed, config.LogKeyError, err)
		return err
	}

	app.TimetableMut.Lock()
	app.Timetable = tables
	app.TimetableMut.Unlock()

	if app.Server != nil {
		app.Server.Update(data, events)
	}
	return nil
}

// retrySync re-requests notification permission and refreshes the tables.
func (app *NoorApp) retrySync() {
	slog.Info(config.MsgRetryRequested, config.LogKeyComponent, config.CompUI)

	if err := app.Service.RetryPermissions(app.Ctx); err != nil {
		slog.Warn(config.MsgPermissionDeny, config.LogKeyComponent, config.CompUI, config.LogKeyError, err)
	}

	_, err := app.Service.Refresh(app.Ctx)
	if err == nil {
		err = app.refreshFeed()
	}
	if err != nil {
		app.notify(config.AppName, app.msgOr(config.TKeyNotifRetryError, config.FallbackRetryError))
		return
	}
	app.notify(config.AppName, app.msgOr(config.TKeyNotifRetryOK, config.FallbackRetryOK))
}

// togglePreview plays the selected voice, or stops a running preview.
func (app *NoorApp) togglePreview() {
	if app.Service.Audio.PreviewHandle() != nil {
		app.Service.Audio.StopPreview()
		fyne.Do(app.RefreshTrayMenu)
		return
	}

	h, err := app.Service.PreviewVoice(app.Ctx, app.Service.Settings().VoiceID)
	if err != nil {
		slog.Error(config.MsgAudioFailed, config.LogKeyComponent, config.CompUI, config.LogKeyError, err)
		return
	}
	fyne.Do(app.RefreshTrayMenu)

	// Restore the label once playback ends on its own.
	<-h.Released()
	fyne.Do(app.RefreshTrayMenu)
}

func (app *NoorApp) openFeed() {
	feedURL := app.Server.URL()
	if feedURL == "" {
		return
	}
	u, err := url.Parse(feedURL)
	if err != nil {
		return
	}
	// Calendar clients subscribe through the webcal scheme.
	u.Scheme = "webcal"
	if err := app.App.OpenURL(u); err != nil {
		slog.Warn(config.ErrServerStartup, config.LogKeyComponent, config.CompUI, config.LogKeyError, err)
	}
}

// updateTrayStatus renders one next-prayer update in the tray.
func (app *NoorApp) updateTrayStatus(u engine.NextPrayerUpdate) {
	if app.Menu == nil || app.TrayStatusItem == nil {
		return
	}
	app.TrayStatusItem.Label = app.statusLabel(u)
	app.Menu.Refresh()
}

func (app *NoorApp) statusLabel(u engine.NextPrayerUpdate) string {
	switch {
	case errors.Is(u.Err, engine.ErrNoLocation):
		return app.msgOr(config.TKeyTrayNoLocation, config.FallbackTrayNoLoc)
	case u.Err != nil:
		return app.msgOr(config.TKeyTrayError, config.FallbackTrayError)
	}

	name := app.prayerName(u.Prayer)
	remaining := formatRemaining(u.Remaining)

	label, err := app.localize(config.TKeyTrayNext, map[string]any{
		"Name":      name,
		"Time":      u.Time.String(),
		"Remaining": remaining,
	})
	if err != nil || label == "" {
		label = fmt.Sprintf(config.FallbackTrayNext, name, u.Time, remaining)
	}
	if u.Stale {
		label += app.msgOr(config.TKeyTrayStale, config.FallbackStaleSuffix)
	}
	return label
}

func (app *NoorApp) updateQiblah() {
	if app.TrayQiblahItem == nil {
		return
	}
	bearing, err := app.Service.QiblahBearing()
	if err != nil {
		app.TrayQiblahItem.Label = ""
		return
	}
	deg := fmt.Sprintf(config.FormatDegrees, bearing)
	label, err := app.localize(config.TKeyQiblah, map[string]any{"Bearing": deg})
	if err != nil {
		label = deg
	}
	app.TrayQiblahItem.Label = label
}

func (app *NoorApp) notify(title, body string) {
	app.App.SendNotification(fyne.NewNotification(title, body))
}

// msgOr translates key or returns fallback when the key is missing.
func (app *NoorApp) msgOr(key, fallback string) string {
	if msg := app.GetMsg(key); msg != key {
		return msg
	}
	return fallback
}

func (app *NoorApp) today() string {
	return engine.CivilDate(app.Clock.Now())
}

// formatRemaining renders d as HH:MM:SS, rounding up to the next second.
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf(config.FormatRemaining, secs/3600, secs%3600/60, secs%60)
}
