package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/stelliberty/stelliberty/internal/ipc"
	"github.com/stelliberty/stelliberty/internal/privsvc"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print recent log lines and stream new ones",
	Long: `Logs connects to the running Service, prints the last 500 lines, then
streams new ones until interrupted (spec §6). Unlike install/uninstall/
start/stop, logs does not require elevation.`,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	path := ipc.EndpointPath(ipc.EndpointName(devMode))
	dial := ipc.DialEndpoint(path)
	conn, err := dial(ctx)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	defer conn.Close()

	req, err := json.Marshal(privsvc.Command{Kind: privsvc.CommandStreamLogs})
	if err != nil {
		return err
	}
	if err := ipc.WriteFrame(conn, req); err != nil {
		return fmt.Errorf("send stream_logs command: %w", err)
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		payload, err := ipc.ReadFrame(conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read log frame: %w", err)
		}
		var resp privsvc.Response
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("decode log frame: %w", err)
		}
		if resp.Kind != privsvc.ResponseLogStream {
			continue
		}
		fmt.Println(resp.Line)
	}
}
