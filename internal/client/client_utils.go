package client

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"neonpong/internal/session"
)

var help = errors.New("create or c to host a game\njoin or j <code> to join a friend's game\nq or quit to leave")

type CommandKind int

const (
	Create CommandKind = iota + 1
	Join
)

type Command struct {
	Kind CommandKind
	Code string
}

// HandleUserInput parses one menu line. It returns io.EOF for quit and the help text for
// anything it does not understand.
func HandleUserInput(buf []byte) (Command, error) {
	args := strings.Fields(string(buf))
	if len(args) == 0 {
		return Command{}, help
	}
	switch strings.ToLower(args[0]) {
	case "create", "c", "host":
		return Command{Kind: Create}, nil
	case "join", "j":
		if len(args) < 2 {
			return Command{}, fmt.Errorf("please provide the code your friend is showing")
		}
		return Command{Kind: Join, Code: args[1]}, nil
	case "quit", "q":
		return Command{}, io.EOF
	default:
		return Command{}, help
	}
}

// StatusLine is what is printed once the terminal is back in line mode.
func StatusLine(st session.Status) string {
	if st.Message == "" {
		return fmt.Sprintf("[%s]", st.State)
	}
	return fmt.Sprintf("[%s] %s", st.State, st.Message)
}

// ReadChunks reads `in` for the life of the process. In line mode each chunk is a line, in raw
// mode it is whatever the terminal delivered. The channel closes on EOF or error.
func ReadChunks(in io.Reader) <-chan []byte {
	ch := make(chan []byte)
	go func() {
		defer close(ch)
		buf := make([]byte, 256)
		for {
			n, err := in.Read(buf)
			if n > 0 {
				ch <- append([]byte(nil), buf[:n]...)
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}
