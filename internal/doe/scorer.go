package doe

import "github.com/hailam/gamesearch/internal/game"

// Scorer evaluates a node identified only by its root-to-node move path:
// it must be a pure, reentrant function that never touches the shared
// Game or Store — workers communicate with the driver purely by message
// passing.
type Scorer func(moves []game.Move) int
