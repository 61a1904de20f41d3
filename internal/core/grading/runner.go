package grading

import "context"

// Run executes fetches concurrently and applies their results to the session
// one at a time, following up on any fetches Apply returns. It returns when
// no fetch is outstanding or ctx is done.
func Run(ctx context.Context, s *Session, fetches []Fetch) error {
	results := make(chan Result)
	pending := 0

	launch := func(fs []Fetch) {
		for _, f := range fs {
			pending++
			go func(f Fetch) {
				r := f.Run(ctx)
				select {
				case results <- r:
				case <-ctx.Done():
				}
			}(f)
		}
	}

	launch(fetches)
	for pending > 0 {
		select {
		case r := <-results:
			pending--
			launch(s.Apply(r))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
