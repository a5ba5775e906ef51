package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tartampluch/go-noor/internal/config"
	"github.com/tartampluch/go-noor/internal/store"
)

// VoiceMeta records a downloaded voice next to its blob.
type VoiceMeta struct {
	VoiceID      string    `json:"voice_id"`
	SizeBytes    int       `json:"size_bytes"`
	Downloaded   bool      `json:"downloaded"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Download fetches the voice recording and stores it for offline playback.
// The blob and its downloaded flag are written in one transaction.
func (m *Manager) Download(ctx context.Context, voiceID string) error {
	v, ok := m.Catalog.Lookup(voiceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVoice, voiceID)
	}

	blob, err := m.Fetcher.Fetch(ctx, v.URL)
	if err != nil {
		return err
	}

	meta := VoiceMeta{VoiceID: voiceID, SizeBytes: len(blob), Downloaded: true, DownloadedAt: time.Now()}
	err = m.Store.Update(ctx, func(tx store.Tx) error {
		if err := tx.Put(config.CollAudio, blobKey(voiceID), blob); err != nil {
			return err
		}
		return store.PutJSONTx(tx, config.CollAudio, metaKey(voiceID), meta)
	})
	if err != nil {
		return err
	}

	slog.Info(config.MsgAudioDownloaded,
		config.LogKeyComponent, config.CompAudio,
		config.LogKeyVoice, voiceID,
		config.LogKeySizeBytes, len(blob))
	return nil
}

// Remove deletes a downloaded voice. Removing a voice that was never
// downloaded is not an error.
func (m *Manager) Remove(ctx context.Context, voiceID string) error {
	err := m.Store.Update(ctx, func(tx store.Tx) error {
		if err := tx.Delete(config.CollAudio, blobKey(voiceID)); err != nil {
			return err
		}
		return tx.Delete(config.CollAudio, metaKey(voiceID))
	})
	if err != nil {
		return err
	}
	slog.Info(config.MsgAudioRemoved, config.LogKeyComponent, config.CompAudio, config.LogKeyVoice, voiceID)
	return nil
}

// Downloaded lists the metadata of every voice available offline.
func (m *Manager) Downloaded(ctx context.Context) ([]VoiceMeta, error) {
	records, err := m.Store.GetAll(ctx, config.CollAudio)
	if err != nil {
		return nil, err
	}

	var out []VoiceMeta
	for _, r := range records {
		if _, ok := voiceFromMetaKey(r.Key); !ok {
			continue
		}
		var meta VoiceMeta
		if err := json.Unmarshal(r.Value, &meta); err != nil {
			slog.Warn(config.ErrDecodeRecord,
				config.LogKeyComponent, config.CompAudio,
				config.LogKeyKey, r.Key,
				config.LogKeyError, err)
			continue
		}
		if meta.Downloaded {
			out = append(out, meta)
		}
	}
	return out, nil
}

// IsDownloaded reports whether voiceID has a stored blob.
func (m *Manager) IsDownloaded(ctx context.Context, voiceID string) (bool, error) {
	_, found, err := m.Store.Get(ctx, config.CollAudio, metaKey(voiceID))
	return found, err
}
