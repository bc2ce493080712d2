// Command mcp-client starts a graphbridge MCP server as a subprocess and
// talks to it from an interactive prompt.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	check := flag.Bool("check", false, "list tools, call each read-only tool once and exit")
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client [-check] <server-command> [<args>]")
		fmt.Fprintln(os.Stderr, "Example: mcp-client ./graphbridge serve")
		os.Exit(2)
	}

	ctx := context.Background()

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "graphbridge-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	if *check {
		if err := runCheck(ctx, session); err != nil {
			log.Fatalf("Check failed: %v", err)
		}
		return
	}

	fmt.Println("Connected to graphbridge MCP server.")
	fmt.Println("Available commands:")
	fmt.Println("  /tools          - List available tools")
	fmt.Println("  /schema         - Show the graph schema")
	fmt.Println("  /stats          - Count nodes and relationships")
	fmt.Println("  /graph <cypher> - Execute a read-only Cypher query")
	fmt.Println("  /exit           - Exit the client")
	fmt.Println("  <question>      - Ask a question about the graph")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch {
		case input == "/exit":
			fmt.Println("Goodbye!")
			return

		case input == "/tools":
			listTools(ctx, session)

		case input == "/schema":
			callTool(ctx, session, "get_graph_schema", map[string]any{})

		case input == "/stats":
			callTool(ctx, session, "get_graph_stats", map[string]any{})

		case strings.HasPrefix(input, "/graph "):
			callTool(ctx, session, "query_graph", map[string]any{
				"cypher": strings.TrimPrefix(input, "/graph "),
			})

		case strings.HasPrefix(input, "/"):
			fmt.Printf("Unknown command %q\n\n", input)

		default:
			callTool(ctx, session, "ask_graph", map[string]any{
				"question": input,
			})
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

// runCheck verifies that the server answers the read-only tools.
func runCheck(ctx context.Context, session *mcp.ClientSession) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	fmt.Printf("Found %d tools\n", len(tools.Tools))

	for _, name := range []string{"get_graph_schema", "get_graph_stats"} {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: map[string]any{}})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if res.IsError {
			return fmt.Errorf("%s returned an error: %s", name, contentText(res))
		}
		fmt.Printf("%s ok\n", name)
	}
	return nil
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("Available Tools:")
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, toolName string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		log.Printf("Error calling tool: %v", err)
		return
	}
	printResult(result)
}

func printResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Print("Error: ")
	}
	fmt.Println(contentText(result))
	fmt.Println()
}

func contentText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		switch v := content.(type) {
		case *mcp.TextContent:
			parts = append(parts, prettyJSON(v.Text))
		default:
			data, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				parts = append(parts, fmt.Sprintf("%+v", content))
			} else {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// prettyJSON indents text when it is a JSON document.
func prettyJSON(text string) string {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text
	}
	if m, ok := v.(map[string]any); ok {
		if answer, ok := m["answer"].(string); ok {
			return answer
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return text
	}
	return string(data)
}
