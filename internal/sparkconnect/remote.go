package sparkconnect

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// Scheme is the url scheme of spark connect connection strings.
	Scheme = "sc"
	// DefaultPort is used when the connection string has no port.
	DefaultPort = 15002
	// DefaultUserAgent identifies this client to the server.
	DefaultUserAgent = "sailcheck"
)

var ErrInvalidRemote = errors.New("invalid spark connect connection string")

// Remote is a parsed spark connect connection string in the form of
//
//	sc://host[:port][/;param=value;param=value...]
//
// Recognized params are token, user_id, user_agent, session_id and use_ssl.
// Any other param is sent to the server as request metadata.
type Remote struct {
	Host      string
	Port      int
	Token     string
	UserID    string
	UserAgent string
	SessionID string
	UseSSL    bool
	// Headers are sent with every request as grpc metadata
	Headers map[string]string
}

// ParseRemote parses a spark connect connection string.
func ParseRemote(connectionString string) (*Remote, error) {
	u, err := url.Parse(strings.TrimSpace(connectionString))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRemote, err)
	}
	if u.Scheme != Scheme {
		return nil, fmt.Errorf("%w: scheme must be %q, got %q", ErrInvalidRemote, Scheme+"://", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidRemote)
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("%w: parameters must be passed as /;key=value", ErrInvalidRemote)
	}

	r := &Remote{
		Host:      u.Hostname(),
		Port:      DefaultPort,
		UserAgent: DefaultUserAgent,
		Headers:   make(map[string]string),
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("%w: invalid port %q", ErrInvalidRemote, p)
		}
		r.Port = port
	}

	if err := r.parseParams(u.Path); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Remote) parseParams(path string) error {
	if path == "" || path == "/" {
		return nil
	}
	if !strings.HasPrefix(path, "/;") {
		return fmt.Errorf("%w: path must be empty or start with /;", ErrInvalidRemote)
	}

	for _, param := range strings.Split(path[2:], ";") {
		if param == "" {
			continue
		}

		key, value, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return fmt.Errorf("%w: param %q is not in form of key=value", ErrInvalidRemote, param)
		}

		switch key {
		case "token":
			r.Token = value
			// tokens are never sent in plain text
			r.UseSSL = true
		case "user_id":
			r.UserID = value
		case "user_agent":
			r.UserAgent = value
		case "session_id":
			if _, err := uuid.Parse(value); err != nil {
				return fmt.Errorf("%w: session_id must be a uuid: %w", ErrInvalidRemote, err)
			}
			r.SessionID = value
		case "use_ssl":
			useSSL, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%w: use_ssl: %w", ErrInvalidRemote, err)
			}
			r.UseSSL = useSSL || r.Token != ""
		default:
			r.Headers[strings.ToLower(key)] = value
		}
	}

	return nil
}

// Address returns the host:port address to dial.
func (r *Remote) Address() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// String returns the connection string with the token masked.
func (r *Remote) String() string {
	var sb strings.Builder
	sb.WriteString(Scheme + "://" + r.Address())

	params := make([]string, 0)
	if r.Token != "" {
		params = append(params, "token=***")
	}
	if r.UserID != "" {
		params = append(params, "user_id="+r.UserID)
	}
	if r.SessionID != "" {
		params = append(params, "session_id="+r.SessionID)
	}
	if r.UseSSL && r.Token == "" {
		params = append(params, "use_ssl=true")
	}
	if len(params) > 0 {
		sb.WriteString("/;" + strings.Join(params, ";"))
	}

	return sb.String()
}
