package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"

	sonic "github.com/agnivade/sonic_transport"
)

var (
	emergencyColor = color.New(color.FgRed, color.Bold)
	txColor        = color.New(color.FgYellow)
	sentColor      = color.New(color.FgGreen)
	errorColor     = color.New(color.FgMagenta)
)

type Client struct {
	conn      *websocket.Conn
	out       io.Writer
	wg        sync.WaitGroup
	log       *log.Logger
	bufWriter *bufio.Writer
	// done is closed when the server goes away.
	done chan struct{}
}

func main() {
	var serverURL = flag.String("url", "ws://localhost:8081/ws", "WebSocket relay URL")
	var outputPath = flag.String("output", "", "Output file path for received reports (optional)")
	var send = flag.String("send", "", "Ask the relay to transmit this message")
	var protocol = flag.String("protocol", "", "Protocol for -send (relay default when empty)")
	var volume = flag.Int("volume", -1, "Volume for -send (relay default when negative)")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		logger.Printf("WebSocket dial failed: %v\n", err)
		return
	}
	defer conn.Close()

	client := newClient(conn, os.Stdout, logger)

	if *outputPath != "" {
		outputFile, err := os.Create(*outputPath)
		if err != nil {
			logger.Printf("Failed to create output file: %v\n", err)
			return
		}
		defer outputFile.Close()

		client.bufWriter = bufio.NewWriter(outputFile)
		defer client.bufWriter.Flush()
	}

	client.Start()

	if *send != "" {
		req := sonic.WebSocketRequest{Text: *send, Protocol: *protocol}
		if *volume >= 0 {
			req.Volume = volume
		}
		if err := client.Send(req); err != nil {
			logger.Printf("Send failed: %v\n", err)
			client.Close()
			return
		}
	}

	fmt.Println("Listening for reports... Press Ctrl+C to stop.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-client.done:
	}

	client.Close()
	fmt.Println("\nDone.")
}

func newClient(conn *websocket.Conn, out io.Writer, logger *log.Logger) *Client {
	return &Client{
		conn: conn,
		out:  out,
		log:  logger,
		done: make(chan struct{}),
	}
}

func (c *Client) Start() {
	c.wg.Add(1)
	go c.reader()
}

// Send asks the relay to transmit a message. The answer arrives through the
// reader.
func (c *Client) Send(req sonic.WebSocketRequest) error {
	return c.conn.WriteJSON(req)
}

func (c *Client) reader() {
	defer c.wg.Done()
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Printf("WebSocket read error: %v\n", err)
			}
			return
		}

		var resp sonic.WebSocketResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			c.log.Printf("Failed to unmarshal response: %v\n", err)
			continue
		}
		c.print(resp)
	}
}

func (c *Client) print(resp sonic.WebSocketResponse) {
	line := formatResponse(resp)

	switch resp.Kind {
	case "emergency":
		emergencyColor.Fprintln(c.out, line)
	case "transaction":
		txColor.Fprintln(c.out, line)
	case sonic.KindSent:
		sentColor.Fprintln(c.out, line)
	case sonic.KindError:
		errorColor.Fprintln(c.out, line)
	default:
		fmt.Fprintln(c.out, line)
	}

	if c.bufWriter != nil {
		if _, err := c.bufWriter.WriteString(line + "\n"); err != nil {
			c.log.Printf("Failed to write to output file: %v\n", err)
		} else {
			c.bufWriter.Flush()
		}
	}
}

func formatResponse(resp sonic.WebSocketResponse) string {
	timestamp := resp.ReceivedAt.Local().Format("15:04:05")
	switch resp.Kind {
	case sonic.KindSent:
		return fmt.Sprintf("[%s] sent %q", timestamp, resp.Message)
	case sonic.KindError:
		return fmt.Sprintf("[%s] failed %q: %s", timestamp, resp.Message, resp.Error)
	}

	text := resp.Display
	if text == "" {
		text = resp.Message
	}
	line := fmt.Sprintf("[%s] %s: %s", timestamp, resp.Kind, text)
	if resp.Fallback {
		line += " (fallback)"
	}
	return line
}

func (c *Client) Close() {
	c.log.Println("Closing client...")
	if c.conn != nil {
		c.conn.Close()
	}
	c.wg.Wait()
}
