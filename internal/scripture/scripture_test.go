package scripture_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/fetcher"
	"github.com/tartampluch/go-noor/internal/scripture"
	"github.com/tartampluch/go-noor/internal/store"
)

const surahIndex = `{"code":200,"status":"OK","data":[
 {"number":1,"name":"سُورَةُ ٱلْفَاتِحَةِ","englishName":"Al-Faatiha","englishNameTranslation":"The Opening","numberOfAyahs":7,"revelationType":"Meccan"},
 {"number":112,"name":"سُورَةُ الإِخْلَاصِ","englishName":"Al-Ikhlaas","englishNameTranslation":"Sincerity","numberOfAyahs":4,"revelationType":"Meccan"}
]}`

const recited112 = `{"code":200,"status":"OK","data":{"number":112,"ayahs":[
 {"number":6222,"audio":"https://cdn.example/6222.mp3","text":"قُلْ هُوَ ٱللَّهُ أَحَدٌ","numberInSurah":1,"juz":30},
 {"number":6223,"audio":"https://cdn.example/6223.mp3","text":"ٱللَّهُ ٱلصَّمَدُ","numberInSurah":2,"juz":30}
]}}`

const translated112 = `{"code":200,"status":"OK","data":{"number":112,"ayahs":[
 {"number":6222,"text":"Say, He is Allah, [who is] One,","numberInSurah":1,"juz":30},
 {"number":6223,"text":"Allah, the Eternal Refuge.","numberInSurah":2,"juz":30}
]}}`

// quranServer imitates the provider and can be switched offline.
type quranServer struct {
	*httptest.Server
	offline atomic.Bool
	hits    atomic.Int32
}

func newQuranServer(t *testing.T) *quranServer {
	t.Helper()
	qs := &quranServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/surah", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(surahIndex))
	})
	mux.HandleFunc("/surah/112/"+config.DefaultReciter, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(recited112))
	})
	mux.HandleFunc("/surah/112/"+config.DefaultTranslation, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(translated112))
	})
	mux.HandleFunc("/surah/2/"+config.DefaultReciter, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(recited112))
	})
	mux.HandleFunc("/surah/2/"+config.DefaultTranslation, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"ayahs":[{"text":"only one"}]}}`))
	})

	qs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		qs.hits.Add(1)
		if qs.offline.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(qs.Close)
	return qs
}

func newTestLibrary(t *testing.T) (*scripture.Library, *quranServer, *store.Store) {
	t.Helper()
	qs := newQuranServer(t)
	f := fetcher.NewHTTPFetcher()
	f.Client = fetcher.NewClient(0)
	st := store.New()
	return scripture.NewLibrary(scripture.NewClient(qs.URL+"/", f), st), qs, st
}

func TestClient_FetchSurahs(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	surahs, err := lib.Client.FetchSurahs(context.Background())

	require.NoError(t, err)
	require.Len(t, surahs, 2)
	assert.Equal(t, 112, surahs[1].Number)
	assert.Equal(t, "Al-Ikhlaas", surahs[1].EnglishName)
	assert.Equal(t, 4, surahs[1].NumberOfAyahs)
	assert.False(t, surahs[1].IsDownloaded)
}

func TestClient_FetchAyahsMergesTranslation(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	ayahs, err := lib.Client.FetchAyahs(context.Background(), 112)

	require.NoError(t, err)
	require.Len(t, ayahs, 2)
	assert.Equal(t, 1, ayahs[0].NumberInSurah)
	assert.Equal(t, "Say, He is Allah, [who is] One,", ayahs[0].Translation)
	assert.Equal(t, "https://cdn.example/6223.mp3", ayahs[1].Audio)
	assert.Equal(t, 30, ayahs[1].Juz)
}

func TestClient_FetchAyahsErrors(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.Client.FetchAyahs(ctx, 0)
	assert.ErrorIs(t, err, scripture.ErrInvalidSurah)

	_, err = lib.Client.FetchAyahs(ctx, 115)
	assert.ErrorIs(t, err, scripture.ErrInvalidSurah)

	_, err = lib.Client.FetchAyahs(ctx, 2)
	assert.ErrorIs(t, err, scripture.ErrProviderResponse, "verse counts must match")

	_, err = lib.Client.FetchAyahs(ctx, 3)
	assert.ErrorIs(t, err, fetcher.ErrUnexpectedStatus)
}

func TestLibrary_DownloadIsAtomicWithFlag(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.Surahs(ctx)
	require.NoError(t, err)

	require.NoError(t, lib.Download(ctx, 112))

	ok, err := lib.IsDownloaded(ctx, 112)
	require.NoError(t, err)
	assert.True(t, ok)

	surahs, err := lib.Surahs(ctx)
	require.NoError(t, err)
	assert.True(t, surahs[1].IsDownloaded, "a refreshed index keeps the downloaded flag")
	assert.False(t, surahs[0].IsDownloaded)

	require.NoError(t, lib.Remove(ctx, 112))
	ok, err = lib.IsDownloaded(ctx, 112)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLibrary_FailedDownloadWritesNothing(t *testing.T) {
	lib, _, st := newTestLibrary(t)
	ctx := context.Background()

	assert.Error(t, lib.Download(ctx, 2))

	records, err := st.GetAll(ctx, config.CollScripture)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLibrary_OfflineReads(t *testing.T) {
	lib, qs, _ := newTestLibrary(t)
	ctx := context.Background()

	_, err := lib.Surahs(ctx)
	require.NoError(t, err)
	require.NoError(t, lib.Download(ctx, 112))

	qs.offline.Store(true)

	surahs, err := lib.Surahs(ctx)
	require.NoError(t, err, "the stored index is served offline")
	require.Len(t, surahs, 2)
	assert.Equal(t, 1, surahs[0].Number)
	assert.True(t, surahs[1].IsDownloaded)

	before := qs.hits.Load()
	ayahs, err := lib.Ayahs(ctx, 112)
	require.NoError(t, err)
	assert.Len(t, ayahs, 2)
	assert.Equal(t, before, qs.hits.Load(), "downloaded content is read without network access")

	_, err = lib.Ayahs(ctx, 1)
	assert.ErrorIs(t, err, scripture.ErrNotAvailable)
}

func TestLibrary_OfflineWithoutIndex(t *testing.T) {
	lib, qs, _ := newTestLibrary(t)
	qs.offline.Store(true)

	_, err := lib.Surahs(context.Background())
	assert.ErrorIs(t, err, fetcher.ErrUnexpectedStatus)
}

func TestLibrary_RemoveUnknownIsNoop(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	assert.NoError(t, lib.Remove(context.Background(), 5))
	assert.ErrorIs(t, lib.Remove(context.Background(), 200), scripture.ErrInvalidSurah)
}
