package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshcall/meshcall/internal/call"
	"github.com/meshcall/meshcall/internal/config"
	"github.com/meshcall/meshcall/internal/transfer"
	"github.com/meshcall/meshcall/internal/ui"
)

var (
	flagJoinDomain   string
	flagJoinSecure   bool
	flagJoinSTUN     string
	flagJoinTURN     string
	flagJoinTURNUser string
	flagJoinTURNPass string
	flagJoinRelay    bool
	flagJoinLabel    string
	flagJoinOutput   string
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join a room and chat with its participants",
	Long: `Join a room on the signaling server and open data channels to every
other participant. Typed lines are sent as chat; commands start with a slash.

Commands:
  /send <path>   send a file to everyone in the room
  /peers         list participants and connection states
  /quit          leave the room

Examples:
  meshcall join team-standup
  meshcall join team-standup --label alice --output ~/Downloads
  meshcall join team-standup --relay --turn turn:turn.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := strings.TrimSpace(args[0])
		if roomID == "" {
			return fmt.Errorf("room ID cannot be empty")
		}
		return runJoin(roomID)
	},
}

func runJoin(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagJoinDomain,
		Secure:     flagJoinSecure,
		STUNServer: flagJoinSTUN,
		TURNServer: flagJoinTURN,
		TURNUser:   flagJoinTURNUser,
		TURNPass:   flagJoinTURNPass,
		ForceRelay: flagJoinRelay,
		Label:      flagJoinLabel,
		OutputDir:  flagJoinOutput,
	})
	if err != nil {
		return err
	}
	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	c := call.New(cfg, call.Events{
		OnChat:   ui.PrintRemote,
		OnSystem: ui.PrintSystem,
		OnFileStart: func(remoteID, name string, size int64) {
			ui.PrintSystem(fmt.Sprintf("receiving %s (%s) from %s", name, ui.FormatSize(size), remoteID))
		},
		OnFileSaved: func(remoteID, path string) {
			ui.PrintSuccess(fmt.Sprintf("saved %s", path))
		},
		OnPeerConnected: func(remoteID string) {
			ui.PrintSystem(fmt.Sprintf("connected to %s", remoteID))
		},
		OnPeerLeft: func(remoteID string) {
			ui.PrintSystem(fmt.Sprintf("%s left the room", remoteID))
		},
	})

	if err := c.Connect(); err != nil {
		return transfer.NewError("connect to server", err)
	}
	defer c.HangUp()

	c.Join(roomID)
	ui.PrintSuccess(fmt.Sprintf("joined room %s as %s", roomID, c.LocalID()))
	ui.PrintSystem("type a message, /send <path>, /peers, or /quit")

	return repl(c)
}

// repl reads stdin lines until /quit or EOF. Plain lines become chat.
func repl(c *call.Call) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/q":
			return nil

		case line == "/peers":
			ids, states := c.Peers()
			ui.RenderParticipants(c.LocalID(), ids, states)

		case strings.HasPrefix(line, "/send "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/send "))
			if err := sendFile(c, path); err != nil {
				ui.PrintError(err.Error())
			}

		case strings.HasPrefix(line, "/"):
			ui.PrintError(fmt.Sprintf("unknown command: %s", line))

		default:
			if err := c.SendChat(line); err != nil {
				ui.PrintError(err.Error())
				continue
			}
			ui.PrintSelf(line)
		}
	}
	return scanner.Err()
}

func sendFile(c *call.Call, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return transfer.NewFileError("stat file", path, err)
	}

	bar := ui.RunTransferBar(filepath.Base(path), info.Size())

	start := time.Now()
	sendErr := c.SendFile(path, func(remoteID string, sent, total int64) {
		bar.Set(sent)
	})
	bar.Stop()
	elapsed := time.Since(start)

	status := "Completed"
	if sendErr != nil {
		status = "Failed"
	}
	ui.RenderTransferSummary(ui.TransferSummary{
		Status:   status,
		Name:     info.Name(),
		Size:     ui.FormatSize(info.Size()),
		Duration: elapsed.Round(time.Millisecond).String(),
		Speed:    formatSpeed(info.Size(), elapsed),
	})
	return sendErr
}

func formatSpeed(bytes int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "-"
	}
	perSecond := int64(float64(bytes) / elapsed.Seconds())
	return ui.FormatSize(perSecond) + "/s"
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVar(&flagJoinDomain, "domain", "", "Custom signaling server domain")
	joinCmd.Flags().BoolVar(&flagJoinSecure, "secure", false, "Use wss:// for the signaling connection")
	joinCmd.Flags().StringVarP(&flagJoinSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagJoinTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVar(&flagJoinTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagJoinTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVarP(&flagJoinRelay, "relay", "r", false, "Force relay mode")
	joinCmd.Flags().StringVarP(&flagJoinLabel, "label", "l", "", "Chat sender label")
	joinCmd.Flags().StringVarP(&flagJoinOutput, "output", "o", "", "Directory to save received files")
}
