package geo_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-noor/internal/engine"
	"github.com/tartampluch/go-noor/internal/geo"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

const londonResults = `[
 {"place_id":1,"display_name":"London, Greater London, England, United Kingdom","lat":"51.5074456","lon":"-0.1277653"},
 {"place_id":2,"display_name":"London, Ontario, Canada","lat":"42.9836747","lon":"-81.2496068"},
 {"place_id":3,"display_name":"Broken","lat":"999","lon":"0"}
]`

func TestGeocoder_Search(t *testing.T) {
	f := new(MockFetcher)
	var requested string
	f.On("Fetch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { requested = args.String(1) }).
		Return([]byte(londonResults), nil)

	g := geo.NewGeocoder("https://geo.example/", "secret", f)
	places, err := g.Search(context.Background(), "  London ", 5)

	require.NoError(t, err)
	require.Len(t, places, 2, "out-of-range coordinates are dropped")
	assert.Equal(t, "London, Ontario, Canada", places[1].Name)
	assert.InDelta(t, 51.5074, places[0].Lat, 0.0001)
	assert.InDelta(t, -0.1278, places[0].Lng, 0.0001)

	u, err := url.Parse(requested)
	require.NoError(t, err)
	assert.Equal(t, "/search", u.Path)
	assert.Equal(t, "London", u.Query().Get("q"))
	assert.Equal(t, "json", u.Query().Get("format"))
	assert.Equal(t, "5", u.Query().Get("limit"))
	assert.Equal(t, "secret", u.Query().Get("key"))
}

func TestGeocoder_ResolveAndLimit(t *testing.T) {
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, mock.MatchedBy(func(u string) bool {
		parsed, err := url.Parse(u)
		return err == nil && parsed.Query().Get("key") == "" && parsed.Query().Get("limit") == "1"
	})).Return([]byte(londonResults), nil)

	g := geo.NewGeocoder("https://geo.example", "", f)
	p, err := g.Resolve(context.Background(), "London")

	require.NoError(t, err)
	assert.Equal(t, engine.Location{Lat: p.Lat, Lng: p.Lng, Name: "London, Greater London, England, United Kingdom"}, p.Location())
	f.AssertExpectations(t)
}

func TestGeocoder_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyQuery", func(t *testing.T) {
		g := geo.NewGeocoder("https://geo.example", "", new(MockFetcher))
		_, err := g.Search(ctx, "   ", 5)
		assert.ErrorIs(t, err, geo.ErrEmptyQuery)
	})

	t.Run("NoResult", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Fetch", mock.Anything, mock.Anything).Return([]byte(`[]`), nil)
		_, err := geo.NewGeocoder("https://geo.example", "", f).Search(ctx, "Atlantis", 5)
		assert.ErrorIs(t, err, geo.ErrNoResult)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("Fetch", mock.Anything, mock.Anything).Return([]byte(`<html>`), nil)
		_, err := geo.NewGeocoder("https://geo.example", "", f).Search(ctx, "London", 5)
		assert.ErrorIs(t, err, engine.ErrProviderResponse)
	})

	t.Run("Network", func(t *testing.T) {
		netErr := errors.New("dial tcp: no route to host")
		f := new(MockFetcher)
		f.On("Fetch", mock.Anything, mock.Anything).Return(nil, netErr)
		_, err := geo.NewGeocoder("https://geo.example", "", f).Search(ctx, "London", 5)
		assert.ErrorIs(t, err, netErr)
	})
}
