//go:build windows

package scheduler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
)

// ServiceSpec describes the parameters needed to render and install the
// platform-specific service definition.
type ServiceSpec struct {
	Label           string
	ExecutablePath  string
	IntervalSeconds int
	LogPath         string
}

// RenderScheduledTaskXML builds a Windows Task Scheduler XML document
// that runs the agent's daemon subcommand on a fixed-interval trigger,
// the Windows analogue of the launchd plist installed on macOS.
func RenderScheduledTaskXML(spec ServiceSpec) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-16"`)

	task := doc.CreateElement("Task")
	task.CreateAttr("version", "1.2")
	task.CreateAttr("xmlns", "http://schemas.microsoft.com/windows/2004/02/mit/task")

	regInfo := task.CreateElement("RegistrationInfo")
	regInfo.CreateElement("Description").SetText(fmt.Sprintf("%s background sync agent", spec.Label))

	triggers := task.CreateElement("Triggers")
	timeTrigger := triggers.CreateElement("TimeTrigger")
	timeTrigger.CreateElement("Repetition").CreateElement("Interval").
		SetText(fmt.Sprintf("PT%dS", spec.IntervalSeconds))
	timeTrigger.CreateElement("Enabled").SetText("true")

	principals := task.CreateElement("Principals")
	principal := principals.CreateElement("Principal")
	principal.CreateAttr("id", "Author")
	principal.CreateElement("LogonType").SetText("InteractiveToken")

	settings := task.CreateElement("Settings")
	settings.CreateElement("StartWhenAvailable").SetText("true")

	actions := task.CreateElement("Actions")
	exec := actions.CreateElement("Exec")
	exec.CreateElement("Command").SetText(spec.ExecutablePath)
	exec.CreateElement("Arguments").SetText("daemon start --foreground")

	doc.Indent(2)
	return doc.WriteToBytes()
}

// ScheduledTaskXMLPath returns the path the rendered task XML is
// written to before `schtasks /Create /XML` imports it.
func ScheduledTaskXMLPath(configDir, label string) string {
	return filepath.Join(configDir, label+".task.xml")
}

// InstallService renders and writes the scheduled task XML for spec.
func InstallService(configDir string, spec ServiceSpec) (string, error) {
	xml, err := RenderScheduledTaskXML(spec)
	if err != nil {
		return "", err
	}
	path := ScheduledTaskXMLPath(configDir, spec.Label)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("scheduler: create config dir: %w", err)
	}
	if err := os.WriteFile(path, xml, 0o644); err != nil {
		return "", fmt.Errorf("scheduler: write scheduled task xml: %w", err)
	}
	return path, nil
}

// UninstallService removes the rendered scheduled task XML for label.
func UninstallService(configDir, label string) error {
	path := ScheduledTaskXMLPath(configDir, label)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
