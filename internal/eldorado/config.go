package eldorado

import (
	"fmt"
	"strings"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/aapo-kossi/gym-eldorado/internal/parameters"
	"github.com/pkg/errors"
)

// Difficulty of the generated maps: pieces of a higher difficulty are only used when
// the configured difficulty allows them.
type Difficulty uint8

const (
	EASY Difficulty = iota
	MEDIUM
	HARD
	NumDifficulties
)

var difficultyNames = [NumDifficulties]string{"EASY", "MEDIUM", "HARD"}

// String implements fmt.Stringer.
func (d Difficulty) String() string {
	if d >= NumDifficulties {
		return fmt.Sprintf("Difficulty(%d)", d)
	}
	return difficultyNames[d]
}

// ParseDifficulty converts a difficulty name (case-insensitive) to a Difficulty.
func ParseDifficulty(name string) (Difficulty, error) {
	for d, dName := range difficultyNames {
		if strings.EqualFold(name, dName) {
			return Difficulty(d), nil
		}
	}
	return 0, errors.Errorf("unknown difficulty %q, valid values are %v", name, difficultyNames)
}

const (
	// MaxPieces is the maximum number of travel pieces of a map.
	MaxPieces = 8

	// DefaultMaxSteps after which an episode is truncated.
	DefaultMaxSteps = 100_000
)

// Config of an environment.
type Config struct {
	Seed       uint64
	Players    int
	Pieces     int
	Difficulty Difficulty
	MaxSteps   uint32
	Render     bool
}

// DefaultConfig returns the configuration used if nothing is specified.
func DefaultConfig() Config {
	return Config{
		Players:    batch.MaxPlayers,
		Pieces:     3,
		Difficulty: EASY,
		MaxSteps:   DefaultMaxSteps,
	}
}

// ConfigFromString parses a configuration string like "seed=7,players=2,difficulty=hard,render",
// starting from DefaultConfig.
func ConfigFromString(config string) (cfg Config, err error) {
	cfg = DefaultConfig()
	params := parameters.NewFromConfigString(config)
	if cfg.Seed, err = parameters.PopParamOr(params, "seed", cfg.Seed); err != nil {
		return
	}
	if cfg.Players, err = parameters.PopParamOr(params, "players", cfg.Players); err != nil {
		return
	}
	if cfg.Pieces, err = parameters.PopParamOr(params, "pieces", cfg.Pieces); err != nil {
		return
	}
	var difficulty string
	if difficulty, err = parameters.PopParamOr(params, "difficulty", cfg.Difficulty.String()); err != nil {
		return
	}
	if cfg.Difficulty, err = ParseDifficulty(difficulty); err != nil {
		return
	}
	if cfg.MaxSteps, err = parameters.PopParamOr(params, "max_steps", cfg.MaxSteps); err != nil {
		return
	}
	if cfg.Render, err = parameters.PopParamOr(params, "render", cfg.Render); err != nil {
		return
	}
	if err = parameters.CheckAllUsed(params, "environment"); err != nil {
		return
	}
	err = cfg.Validate()
	return
}

// Validate returns an error if the configuration is not valid.
func (cfg Config) Validate() error {
	if cfg.Players < 1 || cfg.Players > batch.MaxPlayers {
		return errors.Errorf("number of players must be between 1 and %d, got %d", batch.MaxPlayers, cfg.Players)
	}
	if cfg.Pieces < 1 || cfg.Pieces > MaxPieces {
		return errors.Errorf("number of map pieces must be between 1 and %d, got %d", MaxPieces, cfg.Pieces)
	}
	if cfg.Difficulty >= NumDifficulties {
		return errors.Errorf("invalid difficulty %s", cfg.Difficulty)
	}
	if cfg.MaxSteps == 0 {
		return errors.New("max_steps must be > 0")
	}
	return nil
}
