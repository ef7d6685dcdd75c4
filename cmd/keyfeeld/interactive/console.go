// Package interactive provides the interactive command-line interface
// for the keyfeel daemon.
package interactive

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/keyfeel/keyfeel-go/pkg/haptic"
	"github.com/keyfeel/keyfeel-go/pkg/service"
)

// Console handles interactive mode for keyfeeld.
type Console struct {
	svc *service.Service
	rl  *readline.Instance
}

// New creates a new interactive console handler.
func New(svc *service.Service) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "keyfeel> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{
		svc: svc,
		rl:  rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop. It returns when the user
// exits the console.
func (c *Console) Run() {
	defer c.rl.Close()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status", "s":
			c.cmdStatus()

		case "enable", "on":
			c.cmdEnable()

		case "disable", "off":
			c.cmdDisable()

		case "toggle", "t":
			c.cmdToggle()

		case "intensity":
			c.cmdIntensity(args)

		case "pattern":
			c.cmdPattern(args)

		case "trigger", "tap":
			c.cmdTrigger(args)

		case "devices", "d":
			c.cmdDevices()

		case "trust":
			c.cmdTrust()

		case "reinit":
			c.cmdReinit()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Keyfeel Commands:
  Feedback:
    enable             - Enable keystroke feedback
    disable            - Disable keystroke feedback
    toggle             - Toggle keystroke feedback
    intensity <0..1>   - Set feedback intensity
    pattern <name>     - Set feedback pattern (see 'pattern' for names)
    trigger [pattern]  - Fire a test pulse

  Hardware:
    devices            - List multitouch devices
    trust              - Show input-monitoring authorization state
    reinit             - Reset the actuator (use after hardware changes)

  General:
    status             - Show engine status
    help               - Show this help
    quit               - Exit`)
}

// cmdStatus shows the engine status.
func (c *Console) cmdStatus() {
	st := c.svc.Status()

	fmt.Fprintln(c.rl.Stdout(), "\nEngine Status")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  Run ID:      %s\n", st.RunID)
	fmt.Fprintf(c.rl.Stdout(), "  Enabled:     %t\n", st.Enabled)
	fmt.Fprintf(c.rl.Stdout(), "  Intensity:   %.2f\n", st.Intensity)
	fmt.Fprintf(c.rl.Stdout(), "  Pattern:     %s\n", st.Pattern)
	fmt.Fprintf(c.rl.Stdout(), "  Trust:       %s\n", trustString(st.TrustGranted))
	fmt.Fprintf(c.rl.Stdout(), "  Tap:         %s\n", st.TapState)

	actuator := "closed"
	if st.ActuatorOpen {
		actuator = "open"
	}
	if !st.ActuatorAvailable {
		actuator = "unavailable"
	}
	fmt.Fprintf(c.rl.Stdout(), "  Actuator:    %s\n", actuator)

	if st.DeviceKnown {
		fmt.Fprintf(c.rl.Stdout(), "  Device ID:   0x%x\n", st.DeviceID)
	} else {
		fmt.Fprintf(c.rl.Stdout(), "  Device ID:   unknown\n")
	}
	fmt.Fprintln(c.rl.Stdout())
}

// cmdEnable enables feedback.
func (c *Console) cmdEnable() {
	c.svc.SetEnabled(true)
	fmt.Fprintln(c.rl.Stdout(), "Feedback enabled")
}

// cmdDisable disables feedback.
func (c *Console) cmdDisable() {
	c.svc.SetEnabled(false)
	fmt.Fprintln(c.rl.Stdout(), "Feedback disabled")
}

// cmdToggle flips the enabled state.
func (c *Console) cmdToggle() {
	enabled := !c.svc.Enabled()
	c.svc.SetEnabled(enabled)
	if enabled {
		fmt.Fprintln(c.rl.Stdout(), "Feedback enabled")
	} else {
		fmt.Fprintln(c.rl.Stdout(), "Feedback disabled")
	}
}

// cmdIntensity sets the feedback intensity.
func (c *Console) cmdIntensity(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(c.rl.Stdout(), "Usage: intensity <0..1>\n")
		fmt.Fprintf(c.rl.Stdout(), "Current: %.2f\n", c.svc.Intensity())
		return
	}

	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid intensity: %v\n", err)
		return
	}

	c.svc.SetIntensity(value)
	fmt.Fprintf(c.rl.Stdout(), "Intensity set to %.2f\n", c.svc.Intensity())
}

// cmdPattern sets the feedback pattern.
func (c *Console) cmdPattern(args []string) {
	if len(args) < 1 {
		names := make([]string, 0, len(haptic.Kinds()))
		for _, k := range haptic.Kinds() {
			names = append(names, k.String())
		}
		fmt.Fprintln(c.rl.Stdout(), "Usage: pattern <name>")
		fmt.Fprintf(c.rl.Stdout(), "Patterns: %s\n", strings.Join(names, ", "))
		fmt.Fprintf(c.rl.Stdout(), "Current: %s\n", c.svc.Pattern())
		return
	}

	kind, err := haptic.ParseKind(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "%v\n", err)
		return
	}

	c.svc.SetPattern(kind)
	fmt.Fprintf(c.rl.Stdout(), "Pattern set to %s\n", kind)
}

// cmdTrigger fires a test pulse.
func (c *Console) cmdTrigger(args []string) {
	kind := c.svc.Pattern()
	if len(args) > 0 {
		var err error
		kind, err = haptic.ParseKind(args[0])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "%v\n", err)
			return
		}
	}

	c.svc.Trigger(kind, c.svc.Intensity())
	fmt.Fprintf(c.rl.Stdout(), "Triggered %s pulse\n", kind)
}

// cmdDevices lists multitouch devices from the hardware registry.
func (c *Console) cmdDevices() {
	devices, err := c.svc.ListDevices()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Failed to list devices: %v\n", err)
		return
	}
	if len(devices) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No multitouch devices found")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nMultitouch Devices (%d):\n", len(devices))
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for _, dev := range devices {
		fmt.Fprintf(c.rl.Stdout(), "  ID: 0x%x\n", dev.MultitouchID)
		if dev.Product != "" {
			fmt.Fprintf(c.rl.Stdout(), "      Product:   %s\n", dev.Product)
		}
		fmt.Fprintf(c.rl.Stdout(), "      Actuation: %t\n", dev.ActuationSupported)
		fmt.Fprintf(c.rl.Stdout(), "      Built-in:  %t\n", dev.BuiltIn)
		fmt.Fprintln(c.rl.Stdout())
	}
}

// cmdTrust shows the authorization state.
func (c *Console) cmdTrust() {
	gate := c.svc.Gate()
	fmt.Fprintf(c.rl.Stdout(), "Input monitoring: %s\n", trustString(gate.Granted()))
	if gate.Polling() {
		fmt.Fprintln(c.rl.Stdout(), "Waiting for authorization (polling)")
	}
}

// cmdReinit resets the actuator and re-runs discovery.
func (c *Console) cmdReinit() {
	if err := c.svc.Reinitialize(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Reinitialize failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Actuator reinitialized")
}

func trustString(granted bool) string {
	if granted {
		return "granted"
	}
	return "not granted"
}
