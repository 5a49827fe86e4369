// Package main provides a CLI for interacting with the flowman server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowman-io/flowman/pkg/loader"
)

var serverURL string

func main() {
	rootCmd := &cobra.Command{
		Use:   "flowman-cli",
		Short: "Flowman CLI",
		Long:  "Command-line interface for interacting with the flowman server",
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	validateCmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a flow definition file locally",
		Args:  cobra.ExactArgs(1),
		Run:   validateFlow,
	}

	// Flow commands
	flowCmd := &cobra.Command{
		Use:   "flow",
		Short: "Flow management",
	}

	flowCreateCmd := &cobra.Command{
		Use:   "create [file]",
		Short: "Create a new flow from a definition file",
		Args:  cobra.ExactArgs(1),
		Run:   createFlow,
	}

	flowListCmd := &cobra.Command{
		Use:   "list",
		Short: "List flows",
		Run:   listFlows,
	}

	flowGetCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get a flow",
		Args:  cobra.ExactArgs(1),
		Run:   getFlow,
	}

	flowDeleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a flow",
		Args:  cobra.ExactArgs(1),
		Run:   deleteFlow,
	}

	flowCmd.AddCommand(flowCreateCmd, flowListCmd, flowGetCmd, flowDeleteCmd)

	runCmd := &cobra.Command{
		Use:   "run [flow-id]",
		Short: "Start an execution of a stored flow",
		Args:  cobra.ExactArgs(1),
		Run:   runFlow,
	}
	runCmd.Flags().Bool("sync", false, "Treat the argument as a definition file and run it synchronously")

	// Execution commands
	execCmd := &cobra.Command{
		Use:   "execution",
		Short: "Execution management",
	}

	execListCmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		Run:   listExecutions,
	}

	execStatusCmd := &cobra.Command{
		Use:   "status [id]",
		Short: "Get execution status",
		Args:  cobra.ExactArgs(1),
		Run:   executionStatus,
	}

	execDeleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an execution",
		Args:  cobra.ExactArgs(1),
		Run:   deleteExecution,
	}

	execSummaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Show aggregate execution statistics",
		Run:   executionSummary,
	}

	execCmd.AddCommand(execListCmd, execStatusCmd, execDeleteCmd, execSummaryCmd)

	rootCmd.AddCommand(validateCmd, flowCmd, runCmd, execCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// validateFlow parses and validates a definition file without contacting
// the server
func validateFlow(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	def, err := loader.NewDefinitionLoader().Parse(data)
	if err != nil {
		fmt.Printf("Invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Valid flow %q (%d tasks, %d conditions)\n", def.ID, len(def.Tasks), len(def.Conditions))
}

// createFlow uploads a flow definition file
func createFlow(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	body := request(http.MethodPost, "/api/v1/flows", data, http.StatusCreated)
	fmt.Println(string(body))
}

// listFlows lists all stored flows
func listFlows(cmd *cobra.Command, args []string) {
	body := request(http.MethodGet, "/api/v1/flows", nil, http.StatusOK)
	printJSON(body)
}

// getFlow fetches one flow definition
func getFlow(cmd *cobra.Command, args []string) {
	body := request(http.MethodGet, "/api/v1/flows/"+args[0], nil, http.StatusOK)
	printJSON(body)
}

// deleteFlow removes a stored flow
func deleteFlow(cmd *cobra.Command, args []string) {
	body := request(http.MethodDelete, "/api/v1/flows/"+args[0], nil, http.StatusOK)
	fmt.Println(string(body))
}

// runFlow starts an execution of a stored flow, or runs a definition file
// synchronously with --sync
func runFlow(cmd *cobra.Command, args []string) {
	sync, _ := cmd.Flags().GetBool("sync")

	if sync {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		body := request(http.MethodPost, "/api/v1/executions/sync", data, http.StatusOK)
		printJSON(body)
		return
	}

	body := request(http.MethodPost, "/api/v1/flows/"+args[0]+"/executions", nil, http.StatusAccepted)
	fmt.Println(string(body))
}

// listExecutions lists all tracked executions
func listExecutions(cmd *cobra.Command, args []string) {
	body := request(http.MethodGet, "/api/v1/executions", nil, http.StatusOK)
	printJSON(body)
}

// executionStatus fetches the state of one execution
func executionStatus(cmd *cobra.Command, args []string) {
	body := request(http.MethodGet, "/api/v1/executions/"+args[0], nil, http.StatusOK)
	printJSON(body)
}

// deleteExecution removes an execution
func deleteExecution(cmd *cobra.Command, args []string) {
	body := request(http.MethodDelete, "/api/v1/executions/"+args[0], nil, http.StatusOK)
	fmt.Println(string(body))
}

// executionSummary shows aggregate execution statistics
func executionSummary(cmd *cobra.Command, args []string) {
	body := request(http.MethodGet, "/api/v1/executions/summary", nil, http.StatusOK)
	printJSON(body)
}

// request sends an HTTP request to the server and exits on any error or
// unexpected status
func request(method, path string, body []byte, wantStatus int) []byte {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, serverURL+path, reader)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.StatusCode != wantStatus {
		fmt.Printf("Error: %s\n", respBody)
		os.Exit(1)
	}
	return respBody
}

// printJSON re-indents a JSON body for display
func printJSON(body []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(buf.String())
}
