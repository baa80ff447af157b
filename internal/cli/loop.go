package cli

import (
	"bufio"
	"os"
	"strings"
)

// eventBuffer sizes the channel carrying lobby callbacks into the command
// loop.
const eventBuffer = 64

// readLines feeds trimmed stdin lines to the command loop. The channel
// closes on EOF.
func readLines() <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return lines
}
