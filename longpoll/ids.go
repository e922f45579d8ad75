package longpoll

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// IDSource assigns ids to outgoing messages.
type IDSource interface {
	NextID() int64
}

// ClockIDs derives ids from the wall clock in milliseconds. Ids from one
// ClockIDs are strictly increasing: a second send inside the same millisecond
// gets last+1 instead of a duplicate.
type ClockIDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClockIDs returns a millisecond clock id source.
func NewClockIDs() *ClockIDs {
	return &ClockIDs{now: time.Now}
}

// NextID implements IDSource.
func (c *ClockIDs) NextID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.now().UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	c.last = id
	return id
}

// SnowflakeIDs issues time-ordered 63-bit snowflake ids. Use it only against
// servers that keep ids as 64-bit integers; JavaScript servers lose precision
// above 2^53.
type SnowflakeIDs struct {
	node *snowflake.Node
}

// NewSnowflakeIDs creates a generator for the given node (0-1023).
func NewSnowflakeIDs(nodeID int64) (*SnowflakeIDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, WrapError(ErrorInvalidConfig, "snowflake node", err)
	}
	return &SnowflakeIDs{node: node}, nil
}

// NextID implements IDSource.
func (s *SnowflakeIDs) NextID() int64 {
	return s.node.Generate().Int64()
}
