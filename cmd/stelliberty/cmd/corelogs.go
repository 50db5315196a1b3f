package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/stelliberty/stelliberty/internal/ipc"
	"github.com/stelliberty/stelliberty/internal/runtimeparams"
)

var corelogsCmd = &cobra.Command{
	Use:   "core-logs",
	Short: "Stream the running Core's logs over its IPC endpoint",
	Long: `Core-logs opens the Core's own IPC endpoint (spec §4.A open_stream) and
prints each streamed log line until interrupted. The Core must already be
running; use 'stelliberty status' to check.`,
	RunE: runCoreLogs,
}

func init() {
	corelogsCmd.Flags().BoolVar(&devMode, "dev", devMode, "use the development IPC endpoint")
	rootCmd.AddCommand(corelogsCmd)
}

func runCoreLogs(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	endpoint := runtimeparams.IPCEndpointKey(devMode)
	pool := ipc.NewPool(ipc.DialEndpoint(endpoint))
	defer pool.Close()
	client := ipc.NewClient(pool)

	type logLine struct {
		Line string `json:"line"`
	}

	closeStream, err := client.OpenStream(ctx, "/logs", func(msg json.RawMessage) {
		var line logLine
		if err := json.Unmarshal(msg, &line); err != nil || line.Line == "" {
			fmt.Println(string(msg))
			return
		}
		fmt.Println(line.Line)
	})
	if err != nil {
		return fmt.Errorf("open log stream: %w", err)
	}

	<-ctx.Done()
	return closeStream()
}
