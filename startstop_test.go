package startstop_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/startstop"
)

func Example() {
	var mu sync.Mutex
	opens := 0
	svc := startstop.New(func(ctx context.Context, args ...any) error {
		mu.Lock()
		opens++
		mu.Unlock()
		return nil
	}, nil, startstop.WithName("db"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Start(context.Background())
		}()
	}
	wg.Wait()

	fmt.Println(svc.State(), opens)
	// Output: Started 1
}
