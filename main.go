package main

import (
	"flag"
	"os"
	"time"

	"azero/coach"
	"azero/evaluator"
	"azero/game"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "YAML config file; flags override its values")
	numIters := flag.Int("iters", 0, "number of training iterations")
	timeIters := flag.Duration("time-iters", 0, "wall-clock training budget, checked between iterations")
	numEps := flag.Int("eps", 0, "self-play episodes per iteration")
	sims := flag.Int("sims", 0, "MCTS simulations per full search")
	goroutines := flag.Int("goroutines", 0, "parallel self-play and arena workers")
	checkpointDir := flag.String("checkpoint", "", "checkpoint directory")
	seed := flag.Uint64("seed", 0, "random seed, 0 for time-based")
	arch := flag.String("arch", string(evaluator.ArchCompact), "network architecture: compact or wide")
	forced := flag.Bool("forced-playouts", false, "enable forced playouts during self-play")
	load := flag.Bool("load", false, "resume from the checkpoint directory")
	pile := flag.Int("pile", 21, "chip pile size for the built-in game")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := coach.DefaultConfig()
	if *configPath != "" {
		loaded, err := coach.LoadConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *numIters > 0 {
		cfg.NumIters = *numIters
	}
	if *timeIters > 0 {
		cfg.TimeIters = *timeIters
	}
	if *numEps > 0 {
		cfg.NumEps = *numEps
	}
	if *sims > 0 {
		cfg.NumMCTSSims = *sims
	}
	if *goroutines > 0 {
		cfg.Goroutines = *goroutines
	}
	if *checkpointDir != "" {
		cfg.CheckpointDir = *checkpointDir
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *forced {
		cfg.ForcedPlayouts = true
	}

	g := game.NewChips(*pile)
	net, err := evaluator.NewNetwork(len(g.Encode(g.InitialState())), g.ActionSpace(), evaluator.Arch(*arch))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build evaluator")
	}

	c, err := coach.New(g, net, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up coach")
	}
	if *load {
		if err := c.Resume(); err != nil {
			log.Fatal().Err(err).Msg("failed to resume from checkpoint")
		}
	}

	log.Info().Str("checkpoint", cfg.CheckpointDir).Msg("starting training")
	if err := c.Learn(); err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
	log.Info().Msg("training complete")
}
