// Package serial finds and opens USB-attached hubs.
package serial

import (
	"io"

	goserial "github.com/jacobsa/go-serial/serial"
)

// Description describes one attached hub device.
type Description struct {
	VendorID  int
	ProductID int
	Path      string
}

// USB identifiers of hubs that speak the bridge protocol.
var knownHubIDs = map[[2]int]bool{
	{0x0694, 0x0008}: true, // SPIKE Prime hub
	{0x0694, 0x0010}: true, // Robot Inventor hub
}

// IsHub reports whether the USB vendor/product pair is a known hub.
func IsHub(vendorID, productID int) bool {
	return knownHubIDs[[2]int{vendorID, productID}]
}

// Search scans the system for attached hubs.
func Search() []Description {
	return searchDevices(IsHub)
}

// Open opens the device at the given path with the hub bridge's line settings.
func Open(devicePath string) (io.ReadWriteCloser, error) {
	return goserial.Open(goserial.OpenOptions{
		PortName:        devicePath,
		BaudRate:        115200,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
}
