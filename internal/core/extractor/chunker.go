package extractor

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// streamChunk groups incoming fragments into chunks of roughly targetTokens.
// A single fragment larger than the target becomes its own chunk.
func streamChunk(ctx context.Context, g *errgroup.Group, frags <-chan string, targetTokens int) <-chan string {
	out := make(chan string, 8)

	g.Go(func() error {
		defer close(out)

		var (
			buf    []string
			tokSum int
		)
		flush := func() error {
			if tokSum == 0 {
				return nil
			}
			text := strings.Join(buf, "\n")
			buf = buf[:0]
			tokSum = 0
			select {
			case out <- text:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for frag := range frags {
			t := approxTokens(frag)
			if tokSum > 0 && tokSum+t > targetTokens {
				if err := flush(); err != nil {
					return err
				}
			}
			buf = append(buf, frag)
			tokSum += t
			if tokSum >= targetTokens {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	return out
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
