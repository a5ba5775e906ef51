package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Noor/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName             = "Go Noor"
	AppID               = "com.github.tartampluch.go-noor"
	KeyringService      = "com.github.tartampluch.go-noor"
	KeyringGeocoderUser = "geocoder_api_key"
	LocalhostBindAddr   = "127.0.0.1"
	LogFileName         = "app.log"
	DBFileName          = "noor.db"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion = "version"
	FlagDebug   = "debug"
	FlagDB      = "db"
	FlagLat     = "lat"
	FlagLng     = "lng"
	FlagCity    = "city"
	FlagGeocode = "geocode"
	FlagMethod  = "method"
	FlagSchool  = "school"
	FlagVoice   = "voice"
	FlagPlayer  = "player"

	FlagDownloadSurah = "download-surah"
	FlagRemoveSurah   = "remove-surah"
	FlagDownloadVoice = "download-voice"
	FlagRemoveVoice   = "remove-voice"

	FlagDescVersion = "Show application version and exit"
	FlagDescDebug   = "Enable debug logging to stdout"
	FlagDescDB      = "Path of the offline database (default: user config dir)"
	FlagDescLat     = "Latitude of the prayer location"
	FlagDescLng     = "Longitude of the prayer location"
	FlagDescCity    = "Display name of the prayer location"
	FlagDescGeocode = "Resolve the prayer location from a free-text query"
	FlagDescMethod  = "Calculation method id (e.g. 2 = ISNA)"
	FlagDescSchool  = "Juristic school id (0 = Shafi, 1 = Hanafi)"
	FlagDescVoice   = "Adhan voice id"
	FlagDescPlayer  = "Audio player command used for adhan playback"

	FlagDescDownloadSurah = "Download a surah (1-114) for offline reading and exit"
	FlagDescRemoveSurah   = "Remove a downloaded surah and exit"
	FlagDescDownloadVoice = "Download an adhan voice for offline playback and exit"
	FlagDescRemoveVoice   = "Remove a downloaded adhan voice and exit"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Preferences
// -----------------------------------------------------------------------------

const (
	PrefLanguage     = "language"
	PrefServerPort   = "server_port"
	PrefLat          = "location_lat"
	PrefLng          = "location_lng"
	PrefLocationName = "location_name"
	PrefHasLocation  = "location_set"
	PrefMethod       = "calc_method"
	PrefSchool       = "calc_school"
	PrefFajrAngle    = "calc_fajr_angle"
	PrefIshaAngle    = "calc_isha_angle"
	PrefVoice        = "adhan_voice"
	PrefNotifyPrefix = "notify_"
	PrefLastRun      = "last_run_version"
)

// SupportedLanguages defines the list of available UI languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyNotifTitle      = "notif_prayer_title" // Requires Name
	TKeyNotifBody       = "notif_prayer_body"  // Requires Name, Location
	TKeyTrayNext        = "tray_next_prayer"   // Requires Name, Time, Remaining
	TKeyTrayStale       = "tray_stale_suffix"
	TKeyTrayNoLocation  = "tray_no_location"
	TKeyTrayError       = "tray_sync_error"
	TKeyMenuPreview     = "menu_preview_adhan"
	TKeyMenuRetry       = "menu_retry"
	TKeyNotifRetryOK    = "notif_retry_success"
	TKeyNotifRetryError = "notif_retry_error"
	TKeyPrayerPrefix    = "prayer_"

	TKeyMenuSettings  = "menu_settings"
	TKeyMenuTimetable = "menu_timetable"
	TKeyMenuFeed      = "menu_subscribe_feed"
	TKeyMenuStop      = "menu_stop_adhan"
	TKeyEvtSummary    = "event_summary" // Requires Name, Location
	TKeyQiblah        = "tray_qiblah"   // Requires Bearing

	TKeyWinSettings  = "win_settings_title"
	TKeyWinTimetable = "win_timetable_title"
	TKeyLblGeneral   = "lbl_general"
	TKeyLblLanguage  = "lbl_language"
	TKeyLblPort      = "lbl_port"
	TKeyHelpPort     = "help_port"
	TKeyLblLocation  = "lbl_location"
	TKeyLblCity      = "lbl_city"
	TKeyLblLatitude  = "lbl_latitude"
	TKeyLblLongitude = "lbl_longitude"
	TKeyLblAPIKey    = "lbl_geocoder_key"
	TKeyHelpAPIKey   = "help_geocoder_key"
	TKeyBtnSearch    = "btn_search"
	TKeyLblCalc      = "lbl_calculation"
	TKeyLblMethod    = "lbl_method"
	TKeyLblSchool    = "lbl_school"
	TKeyLblFajrAngle = "lbl_fajr_angle"
	TKeyLblIshaAngle = "lbl_isha_angle"
	TKeyHelpAngles   = "help_angles"
	TKeyLblAdhan     = "lbl_adhan"
	TKeyLblVoice     = "lbl_voice"
	TKeyBtnPreview   = "btn_preview"
	TKeyLblNotif     = "lbl_notifications"
	TKeyBtnSave      = "btn_save"
	TKeyBtnCancel    = "btn_cancel"
	TKeyLblFooter    = "lbl_footer" // Requires Version
	TKeyColDate      = "col_date"
	TKeyErrPortReq   = "err_port_required"
	TKeyErrPortNum   = "err_port_numeric"
	TKeyErrPortRange = "err_port_range"
	TKeyErrLatitude  = "err_latitude"
	TKeyErrLongitude = "err_longitude"
	TKeyErrAngle     = "err_angle"
)

// -----------------------------------------------------------------------------
// UI Layout
// -----------------------------------------------------------------------------

const (
	CompUISet = "ui_settings"

	SettingsWindowWidth = 520
	TimetableWinWidth   = 760
	TimetableWinHeight  = 320
	LayoutColumnsDouble = 2
	ColWidthDate        = 130
	ColWidthTime        = 90
	ColIDDate           = 0
	TablePlaceholder    = "00:00"
	EmptyTime           = "--:--"
	DateFormatDisplay   = "Mon 02 Jan"
	FormatRemaining     = "%02d:%02d:%02d"
	FormatDegrees       = "%.0f°"

	MinPort     = 1
	MaxPort     = 65535
	MaxAngleDeg = 30.0
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort     = "18081"
	DefaultLanguage = "en"
	DefaultMethod   = 2 // Islamic Society of North America
	DefaultSchool   = 0 // Shafi
	DefaultVoiceID  = "makkah"

	// CustomMethodID is the provider method id that enables custom twilight angles.
	CustomMethodID = 99

	// CoordinatePrecision is the number of decimals kept in table cache keys.
	CoordinatePrecision = 2

	// FeedDays is the number of days published in the iCalendar feed.
	FeedDays = 7

	// GeocodeLimit caps the number of places returned by a location query.
	GeocodeLimit = 5
)

// Kaaba coordinates used for the Qiblah bearing.
const (
	KaabaLat = 21.4225
	KaabaLng = 39.8262
)

// VibrationPattern is the haptic pulse fired on dispatch (on, off, on).
var VibrationPattern = []time.Duration{150 * time.Millisecond, 50 * time.Millisecond, 150 * time.Millisecond}

// DefaultPlayerCommand plays a file or URL headlessly and exits when done.
var DefaultPlayerCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"}

// -----------------------------------------------------------------------------
// Scheduling
// -----------------------------------------------------------------------------

const (
	// DispatchInterval is the dispatcher tick. It must stay well under a minute
	// so that OS timer drift cannot skip a whole HH:MM value.
	DispatchInterval = 30 * time.Second

	// CountdownInterval drives the next-prayer subscription.
	CountdownInterval = 1 * time.Second

	// StaleRetryInterval throttles live refresh attempts while serving cached tables.
	StaleRetryInterval = 5 * time.Minute

	// FetchTimeout bounds a single Time Source refresh started from a tick.
	FetchTimeout = 20 * time.Second
)

// -----------------------------------------------------------------------------
// Storage
// -----------------------------------------------------------------------------

const (
	SchemaVersion      = 1
	SQLiteDriver       = "sqlite"
	SQLiteBusyTimeout  = 5000 // milliseconds
	CollReference      = "reference"
	CollScripture      = "scripture"
	CollAudio          = "audio"
	CollSettings       = "settings"
	KeyActiveSettings  = "active"
	KeyPrefixSurah     = "surah:"
	KeyPrefixAyahs     = "ayahs:"
	KeyPrefixAudioBlob = "blob:"
	KeyPrefixAudioMeta = "meta:"
	TempAudioPattern   = "noor-adhan-*.audio"
)

// -----------------------------------------------------------------------------
// Remote Providers
// -----------------------------------------------------------------------------

const (
	AladhanBaseURL     = "https://api.aladhan.com/v1"
	QuranBaseURL       = "https://api.alquran.cloud/v1"
	NominatimBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultReciter     = "ar.alafasy"
	DefaultTranslation = "en.sahih"
	SurahCount         = 114

	AladhanDateFormat = "02-01-2006"
	TableDateFormat   = "2006-01-02"
	TimeOfDayFormat   = "%02d:%02d"
	HijriFormat       = "%s %s %s AH"
	AngleFormat       = "%.1f"
	AngleUnset        = "null"
	TableKeyFormat    = "%s|%.2f|%.2f|m%d|s%d|f%s|i%s"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	HTTPRetryMax        = 3
	HTTPRetryWaitMin    = 1 * time.Second
	HTTPRetryWaitMax    = 10 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 64 * 1024 * 1024 // 64MB, large enough for adhan recordings
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteFeed           = "/prayer-times.ics"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderAccept          = "Accept"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeJSON            = "application/json"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Noor//Prayer Times//EN"
	ICalCalName   = "Prayer Times"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "gonoor"
	ICalTrigger   = "PT0M"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropLocation    = "LOCATION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	DefaultICalRefresh = 6 * time.Hour

	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s@%s"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrStorageUnavailable  = "storage unavailable"
	ErrUnknownCollection   = "unknown collection"
	ErrStorePathEmpty      = "database path is empty"
	ErrTimeSourceDown      = "time source unavailable"
	ErrAudioResolution     = "audio resolution failed"
	ErrPermissionDenied    = "permission denied"
	ErrUnsupported         = "channel unsupported on this platform"
	ErrNoLocation          = "no location configured"
	ErrIncompleteTable     = "prayer time table is incomplete"
	ErrBadTimeOfDay        = "invalid time of day"
	ErrProviderResponse    = "unexpected provider response"
	ErrPlayerUnavailable   = "no audio player configured"
	ErrUnknownVoice        = "unknown voice"
	ErrInvalidURL          = "invalid URL structure"
	ErrProtocol            = "unsupported protocol scheme (http/https only)"
	ErrUnexpectedStatus    = "server returned unexpected status"
	ErrNetwork             = "network error during fetch"
	ErrResponseTooLarge    = "response body exceeds size limit"
	ErrServerStartup       = "server startup failed"
	ErrServerShutdown      = "server shutdown failed"
	ErrPortRequired        = "server port is required"
	ErrWriteResp           = "failed to write response body"
	ErrICalEncode          = "failed to encode iCalendar data"
	ErrLogFile             = "failed to open log file"
	ErrCacheDir            = "could not determine user cache dir"
	ErrConfigDir           = "could not determine user config dir"
	ErrCreateDir           = "could not create app directory"
	ErrAppFailed           = "application failed unexpectedly"
	ErrLocalesAccess       = "failed to access embedded locales"
	ErrLocaleLoad          = "failed to load locale file"
	ErrTrayNotSupported    = "system tray not supported on this platform/driver"
	ErrLocNotInit          = "localizer not initialized"
	ErrGeocodeNoResult     = "no place matched the location query"
	ErrGeocodeEmptyQuery   = "location query is empty"
	ErrSurahNotFound       = "surah content not available offline"
	ErrInvalidSurah        = "surah number out of range"
	ErrVerseMismatch       = "recitation and translation verse counts differ"
	ErrTickPanic           = "dispatcher tick panicked"
	ErrDecodeRecord        = "failed to decode stored record"
	ErrEncodeRecord        = "failed to encode record"
	ErrSettingsPersist     = "failed to persist settings"
	ErrKeyringLookup       = "geocoder API key lookup failed"
	ErrDispatcherNotArmed  = "dispatcher is not armed"
	ErrTempFile            = "failed to materialize downloaded audio"
	ErrInvalidCoordinates  = "coordinates out of range"
	ErrSchemaMigration     = "failed to migrate schema"
	ErrStoreWrite          = "store write failed"
	ErrStoreRead           = "store read failed"
	ErrNotificationFailure = "notification channel failed"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Prayer timetable initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackNotifTitle   = "Prayer Time: %s"
	FallbackNotifBody    = "It is time for %s in %s"
	FallbackTrayNext     = "%s %s (%s)"
	FallbackTrayError    = "Go Noor: Unable to sync"
	FallbackTrayNoLoc    = "Go Noor: Location not set"
	FallbackTrayLabel    = "Go Noor"
	FallbackStaleSuffix  = " *"
	FallbackLocationName = "your location"
	FallbackRetryOK      = "Prayer times synchronized."
	FallbackRetryError   = "Unable to sync prayer times. Check your connection."

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgAppStarting     = "Starting application"
	MsgAppStop         = "Application stopped gracefully"
	MsgCtxCancel       = "Context cancelled, shutting down UI"
	MsgStoreOpened     = "Offline store opened"
	MsgStoreDegraded   = "Offline store unavailable, running in network-only mode"
	MsgStoreMigrated   = "Store schema migrated"
	MsgCacheHit        = "Prayer times found in offline cache"
	MsgCacheMiss       = "No cached prayer times for key"
	MsgLiveFetched     = "Prayer times refreshed from provider"
	MsgServingStale    = "Provider unreachable, serving cached prayer times"
	MsgWriteThroughErr = "Failed to cache prayer times"
	MsgWorkerStart     = "Background worker started"
	MsgWorkerStop      = "Worker stopping due to context cancellation"
	MsgDispatcherArm   = "Dispatcher armed"
	MsgDispatcherStop  = "Dispatcher stopped"
	MsgDispatcherReset = "Schedule changed, dedup ledger cleared"
	MsgTickSkipped     = "Tick skipped, no prayer table available"
	MsgDispatch        = "Prayer time reached, dispatching"
	MsgNotifyFailed    = "Visual notification failed"
	MsgVibrateFailed   = "Haptic pulse unavailable"
	MsgAudioFailed     = "Adhan playback failed"
	MsgPermissionDeny  = "Notification permission denied, channel disabled"
	MsgPermissionOK    = "Notification permission granted"
	MsgHandleReleased  = "Playable handle released"
	MsgHandleAcquired  = "Playable handle acquired"
	MsgAudioDownloaded = "Adhan voice downloaded"
	MsgAudioRemoved    = "Adhan voice removed"
	MsgSurahDownloaded = "Surah downloaded for offline use"
	MsgSurahRemoved    = "Surah removed from offline storage"
	MsgSurahsOffline   = "Surah list served from offline storage"
	MsgServerListen    = "HTTP server listening"
	MsgServerStop      = "Shutting down HTTP server..."
	MsgFeedUpdated     = "Timetable feed updated"
	MsgFeedFailed      = "Timetable feed refresh failed"
	MsgFetchStart      = "Initiating download"
	MsgFetchStatus     = "Server returned error status"
	MsgFetchTooLarge   = "Response body over size limit"
	MsgGeocoded        = "Location resolved"
	MsgSettingsApplied = "Settings applied"
	MsgLocaleSkip      = "Skipping non-locale file"
	MsgLocaleBadName   = "Skipping malformed locale filename"
	MsgLocaleLoaded    = "Locale loaded successfully"
	MsgTransMissing    = "Missing translation key"
	MsgLogWarning      = "Warning: %s at %s: %v\n"
	MsgRetryRequested  = "Retry requested"
	MsgPreviewVoice    = "Adhan preview requested"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent  = "component"
	LogKeyError      = "error"
	LogKeyURL        = "url"
	LogKeyStatus     = "status_code"
	LogKeyFile       = "file"
	LogKeyLang       = "lang"
	LogKeyKey        = "key"
	LogKeyPort       = "port"
	LogKeyPath       = "path"
	LogKeyInterval   = "interval"
	LogKeyPrayer     = "prayer"
	LogKeyTime       = "time"
	LogKeyDate       = "date"
	LogKeyLocation   = "location"
	LogKeyMethod     = "method"
	LogKeySchool     = "school"
	LogKeyVoice      = "voice"
	LogKeyHandle     = "handle"
	LogKeySlot       = "slot"
	LogKeyLocal      = "local"
	LogKeyStale      = "stale"
	LogKeySurah      = "surah"
	LogKeyCount      = "count"
	LogKeyVersion    = "version"
	LogKeySizeBytes  = "size_bytes"
	LogKeyETag       = "etag"
	LogKeyCollection = "collection"
	LogKeyBackend    = "backend"
	LogKeyDuration   = "duration_ms"
	LogKeyValue      = "value"
	LogKeyState      = "state"

	// Startup Info Keys
	LogKeyBuild = "build"
	LogKeyApp   = "app"
	LogKeyGoVer = "go_version"
	LogKeyEnv   = "env"
	LogKeyOS    = "os"
	LogKeyArch  = "arch"
	LogKeyPID   = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompUI         = "ui"
	CompStore      = "store"
	CompTimeSource = "timesource"
	CompProvider   = "provider"
	CompDispatcher = "dispatcher"
	CompCountdown  = "countdown"
	CompAudio      = "audio"
	CompScripture  = "scripture"
	CompGeo        = "geo"
	CompServer     = "server"
	CompFetcher    = "fetcher"
	CompWorker     = "worker"
	CompMain       = "main"
	CompI18n       = "i18n"
)
