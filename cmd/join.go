package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/api"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/config"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/media"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/room"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/signaling"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/ui"
)

var (
	flagServer  string
	flagName    string
	flagAvatar  string
	flagSTUN    string
	flagNoAudio bool
	flagNoVideo bool
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join a game room",
	Long: `Join a Shuffle & Sync game room and open the terminal table view.

Examples:
  shufflesync join kitchen-table-42
  shufflesync join kitchen-table-42 --name "Alex" --server http://localhost:8080
  shufflesync join kitchen-table-42 --no-video`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func joinRoom(roomID string) error {
	cfg, err := config.Load(config.Options{
		Server:       flagServer,
		DisplayName:  flagName,
		AvatarURL:    flagAvatar,
		STUNServer:   flagSTUN,
		DisableAudio: flagNoAudio,
		DisableVideo: flagNoVideo,
	})
	if err != nil {
		return err
	}

	name := cfg.DisplayName
	if name == "" {
		name = anonymousName()
	}

	self := signaling.User{
		ID:     uuid.New().String(),
		Name:   name,
		Avatar: cfg.AvatarURL,
	}

	// Media-capture failures degrade the room, never block joining it.
	devices, err := media.Open(!cfg.DisableAudio, !cfg.DisableVideo)
	if err != nil {
		slog.Warn("media capture unavailable, joining without local video", "err", err)
		devices = nil
	}

	channel := signaling.NewClient(cfg.SignalingURL())
	rest := api.NewClient(cfg.APIBaseURL())
	ctrl := room.NewController(roomID, self, channel, devices, rest, cfg.STUNServers)

	joinCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stopSpinner := ui.RunSpinner("Connecting to server...")
	if err := ctrl.Join(joinCtx); err != nil {
		stopSpinner()
		return err
	}
	stopSpinner()

	program := tea.NewProgram(ui.NewRoomModel(ctrl), tea.WithAltScreen())
	_, err = program.Run()

	// The model leaves on quit; this covers abnormal program exits too.
	leaveCtx, cancelLeave := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelLeave()
	ctrl.Leave(leaveCtx)
	return err
}

func anonymousName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "Planeswalker"
	}
	return fmt.Sprintf("Planeswalker@%s", host)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagServer, "server", "s", "", "Shuffle & Sync server URL")
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name")
	joinCmd.Flags().StringVarP(&flagAvatar, "avatar", "a", "", "Avatar URL")
	joinCmd.Flags().StringVar(&flagSTUN, "stun", "", "Custom STUN server")
	joinCmd.Flags().BoolVar(&flagNoAudio, "no-audio", false, "Join without a microphone")
	joinCmd.Flags().BoolVar(&flagNoVideo, "no-video", false, "Join without a camera")
}
