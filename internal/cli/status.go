package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	statusAddr string
	statusID   string
)

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://127.0.0.1:8080", "address of a running irrigator serve instance")
	statusCmd.Flags().StringVar(&statusID, "id", "", "greenhouse id (required)")
	statusCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a greenhouse's lifecycle snapshot as JSON",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	url := fmt.Sprintf("%s/greenhouses/%s/status", statusAddr, statusID)
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("status: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status: server returned %d: %s", resp.StatusCode, string(body))
	}

	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		return fmt.Errorf("status: decode response: %w", err)
	}

	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
