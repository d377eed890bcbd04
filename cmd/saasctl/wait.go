package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/saasgate/pkg/server/endpoints"
)

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the saasgate server to be ready",
	Long: `Wait for the saasgate server to be ready by polling /healthz.

This command will repeatedly check the health endpoint until it responds
successfully or the maximum number of retries is reached.

Example:
  saasctl wait
  saasctl wait --port 3000 --retries 60
  saasctl wait --url http://saasgate:8000/healthz`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		retries, _ := cmd.Flags().GetInt("retries")
		url, _ := cmd.Flags().GetString("url")

		if url == "" {
			url = fmt.Sprintf("http://localhost:%d/healthz", port)
		}
		if err := waitForServer(url, retries, time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "Server did not become ready: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().IntP("port", "p", defaultPortInt(), "Server port to check")
	waitCmd.Flags().IntP("retries", "r", 90, "Number of retries")
	waitCmd.Flags().String("url", "", "Health endpoint to poll instead of localhost")
}

// waitForServer polls url until it answers 2xx. When it gives up, the error
// names the health checks that were still failing.
func waitForServer(url string, retries int, interval time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	var failing []string

	fmt.Println("Waiting for saasgate to be ready...")

	for i := 0; i < retries; i++ {
		resp, err := client.Get(url)
		if err == nil {
			var health endpoints.HealthResponse
			_ = json.NewDecoder(resp.Body).Decode(&health)
			_ = resp.Body.Close()
			if resp.StatusCode < 300 {
				fmt.Println()
				fmt.Println("saasgate is ready!")
				return nil
			}
			failing = failing[:0]
			for name, state := range health.Checks {
				if state != "ok" {
					failing = append(failing, name+": "+state)
				}
			}
			sort.Strings(failing)
		}

		fmt.Print(".")
		time.Sleep(interval)
	}

	fmt.Println()
	if len(failing) > 0 {
		return fmt.Errorf("saasgate is not ready after %d attempts (%s)", retries, strings.Join(failing, ", "))
	}
	return fmt.Errorf("saasgate is not ready after %d attempts", retries)
}
