package sensor

import "strings"

// deviceClassMap maps device id prefixes to a component class used to
// group devices in terminal panels.
var deviceClassMap = []struct {
	prefix string
	name   string
}{
	{"cpu", "CPU"},
	{"core", "CPU"},
	{"package", "CPU"},
	{"gpu", "GPU"},
	{"nvme", "NVMe SSD"},
	{"ssd", "HDD/SSD"},
	{"hdd", "HDD/SSD"},
	{"disk", "HDD/SSD"},
	{"sd", "HDD/SSD"},
	{"ambient", "Ambient"},
	{"room", "Ambient"},
	{"inlet", "Airflow"},
	{"exhaust", "Airflow"},
	{"outlet", "Airflow"},
	{"psu", "Power Supply"},
	{"bat", "Battery"},
	{"board", "Motherboard"},
	{"mb", "Motherboard"},
	{"chipset", "Motherboard"},
	{"probe", "Probe"},
}

// Class returns the component class for a device id, or "Sensor".
func Class(device string) string {
	lower := strings.ToLower(device)
	for _, entry := range deviceClassMap {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.name
		}
	}
	return "Sensor"
}

// Aliases maps raw device ids to display names. Tables always keep the
// raw id; aliases only affect charts, panels and reports.
type Aliases map[string]string

// Name returns the display name for a device, falling back to the id.
func (a Aliases) Name(device string) string {
	if name, ok := a[device]; ok && name != "" {
		return name
	}
	return device
}
