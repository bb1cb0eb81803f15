package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wordgrid/live/internal/client"
	"github.com/wordgrid/live/internal/config"
	"github.com/wordgrid/live/internal/identity"
	"github.com/wordgrid/live/internal/protocol"
	"github.com/wordgrid/live/internal/state"
)

func main() {
	configPath := flag.String("config", "wordgrid.yaml", "path to config file")
	identityPath := flag.String("identity", ".wordgrid-identity", "path to guest identity file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	token := cfg.Token
	if token == "" {
		guestID, err := identity.NewStore(*identityPath).LoadOrCreate()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to establish guest identity")
		}
		token = guestID
	}

	log.Info().
		Str("server_url", cfg.ServerURL).
		Str("room_id", cfg.RoomID).
		Bool("guest", identity.IsGuest(token)).
		Msg("starting wordgrid client")

	rec := state.NewReconciler()
	mgr := client.NewManager(client.Options{
		URL:                  cfg.ServerURL,
		Token:                token,
		RoomID:               cfg.RoomID,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		InitialBackoff:       cfg.InitialBackoff(),
		MaxBackoff:           cfg.MaxBackoff(),
		HeartbeatInterval:    cfg.HeartbeatInterval(),
		PauseWhenHidden:      cfg.PauseWhenHidden,
	}, rec)

	if err := mgr.Connect(); err != nil {
		log.Warn().Err(err).Msg("initial connect failed, retrying in background")
	}

	updates, unsubscribe := rec.Subscribe()
	defer unsubscribe()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case st := <-updates:
			logGameState(st)
		case msg := <-mgr.Events():
			logEvent(msg)
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			mgr.Close()
			return
		}
	}
}

func logGameState(st protocol.GameState) {
	ev := log.Info().
		Str("status", string(st.GameStatus)).
		Int("players", len(st.Players))
	if st.TimeRemaining != nil {
		ev = ev.Int("time_remaining", *st.TimeRemaining)
	}
	if st.GameRoundID != "" {
		ev = ev.Str("game_round_id", st.GameRoundID)
	}
	ev.Msg("game state updated")
}

func logEvent(msg protocol.InboundMessage) {
	switch v := msg.(type) {
	case protocol.ChatMessage:
		log.Info().Str("from", v.User).Str("message", v.Message).Msg("chat")
	case protocol.ScoreInChat:
		log.Info().Str("player", v.PlayerName).Int("score", v.Score).Msg("score announced")
	case protocol.ErrorMessage:
		log.Warn().Str("code", v.Code).Str("message", v.Message).Msg("server error")
	case protocol.ShowBackButton:
		log.Info().Msg("round over, back button available")
	default:
		log.Debug().Str("message", fmt.Sprintf("%T", msg)).Msg("unhandled event")
	}
}
