package entity

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
)

const maxPort = 65535

// Connection identifies a peer endpoint.
type Connection struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (that Connection) String() string {
	return fmt.Sprintf("%s:%d", that.Host, that.Port)
}

// ParseConnection reads "host" or "host:port". A bare host gets defaultPort.
func ParseConnection(value string, defaultPort int) (Connection, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")

	if parts[0] == "" {
		return Connection{}, fmt.Errorf("%w: empty host in %q", apperror.ErrParse, value)
	}

	switch len(parts) {
	case 1:
		return Connection{Host: parts[0], Port: defaultPort}, nil
	case 2:
		port, err := strconv.Atoi(parts[1])
		if err != nil {
			return Connection{}, fmt.Errorf("%w: port %q is not a number", apperror.ErrParse, parts[1])
		}

		if port < 1 || port > maxPort {
			return Connection{}, fmt.Errorf("%w: port %d out of range", apperror.ErrParse, port)
		}

		return Connection{Host: parts[0], Port: port}, nil
	default:
		return Connection{}, fmt.Errorf("%w: %q", apperror.ErrParse, value)
	}
}

// RandomPort picks a port in [low, high].
func RandomPort(low, high int) int {
	if high <= low {
		return low
	}

	return low + rand.Intn(high-low+1) //nolint: gosec // not security sensitive
}
