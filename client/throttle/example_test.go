package throttle_test

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wumo-util/http-stack/client/throttle"
)

func ExampleNewRoundTripper() {
	rt, err := throttle.NewRoundTripper(
		throttle.Config{RPS: 10, Burst: 5},
		func() *slog.Logger { return slog.Default() },
		http.DefaultTransport,
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = &http.Client{Transport: rt}

	fmt.Println("throttled transport created")
	// Output: throttled transport created
}

func ExampleConfig_Validate() {
	err := throttle.Config{RPS: 0, Burst: 5}.Validate()
	fmt.Println(err)
	// Output: rps[0] and burst[5] must be greater than zero
}
