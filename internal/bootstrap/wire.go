package bootstrap

import (
	"net/http"
	"os"

	"herohire/internal/audio"
	"herohire/internal/backend"
	"herohire/internal/config"
	"herohire/internal/observability"
	"herohire/internal/ports"
	"herohire/internal/providers/deepgram"
	"herohire/internal/session"
	"herohire/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config       config.Config
	Store        *session.FileStore
	Backend      *backend.Client
	Login        *usecase.LoginFlow
	Conversation *usecase.ConversationController
}

// Build wires all dependencies for the current runtime. Both views share it.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	observability.Configure(os.Stderr, cfg.Log.Level)

	store := session.NewFileStore(cfg.State.Path)
	client := backend.NewClient(
		backend.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout},
		&http.Client{Timeout: cfg.Backend.Timeout},
	)

	var captions ports.CaptionProvider
	if cfg.Deepgram.CaptionsEnabled() {
		captions = deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		})
	}

	recorder := usecase.NewRecorder(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		captions,
		eventSink,
		usecase.RecorderConfig{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			ChunkSize: cfg.Audio.ChunkSize,
		},
	)
	player := usecase.NewPlayer(audio.NewFFPlayPlayer(cfg.Audio.PlayerCommand), "")

	observability.WithFields("component", "bootstrap").Info("services ready",
		"backend", cfg.Backend.BaseURL,
		"captions", captions != nil,
		"state_file", cfg.State.Path,
	)

	return Services{
		Config:       cfg,
		Store:        store,
		Backend:      client,
		Login:        usecase.NewLoginFlow(client, store, store),
		Conversation: usecase.NewConversationController(client, store, recorder, player, eventSink, cfg.Meeting.ReachOutURL),
	}, nil
}
