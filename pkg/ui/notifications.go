package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"albumscan/pkg/config"
	"albumscan/pkg/engine"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=albumscan", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
	return exec.Command("osascript", "-e", script).Run()
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("albumscan").Show($toast)
	`, xmlEscape(title), xmlEscape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

// Notifier prints session events and mirrors them to the desktop
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
}

// PlatformSender returns the sender for the current OS, or nil
func PlatformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// NewNotifier creates a notifier for the current platform
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	return NewNotifierWithSender(cfg, PlatformSender())
}

// NewNotifierWithSender creates a notifier with an explicit sender
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender) *Notifier {
	if !cfg.Enabled {
		sender = nil
	}
	return &Notifier{sender: sender, cfg: cfg}
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// notifications are best effort
		_ = n.sender.Send(title, message)
	}
}

// SendSuccess prints and notifies a success
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Green(title), Green(message))
	if n.cfg.OnComplete {
		n.send(title, message)
	}
}

// SendError prints and notifies a failure
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Red(title), Red(message))
	if n.cfg.OnError {
		n.send(title, message)
	}
}

// SessionFinished reports a finished traversal
func (n *Notifier) SessionFinished(res *engine.Result) {
	if res.HandoffErr != nil {
		n.SendError("albumscan", fmt.Sprintf("Captured %d images but saving failed: %v", len(res.Assets), res.HandoffErr))
		return
	}
	n.SendSuccess("albumscan", fmt.Sprintf("Captured %d images (%s)", len(res.Assets), res.Reason))
}

// ExportFinished reports a written export file
func (n *Notifier) ExportFinished(path string, err error) {
	if err != nil {
		n.SendError("Export failed", err.Error())
		return
	}
	n.SendSuccess("Export complete", path)
}
