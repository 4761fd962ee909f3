//go:build linux

package serial

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	goutils "go.viam.com/utils"
)

// sysPath is a variable so tests can point the search at a fake tree.
var sysPath = "/sys/bus/usb-serial/devices"

// searchDevices walks the kernel's usb-serial device listing and keeps the
// devices includeDevice accepts.
func searchDevices(includeDevice func(vendorID, productID int) bool) []Description {
	devicesDir, err := os.Open(sysPath)
	if err != nil {
		return nil
	}
	defer goutils.UncheckedErrorFunc(devicesDir.Close)
	devices, err := devicesDir.Readdir(0)
	if err != nil {
		return nil
	}
	var results []Description
	for _, device := range devices {
		linkedFile, err := os.Readlink(path.Join(sysPath, device.Name()))
		if err != nil {
			continue
		}
		vendorID, productID, ok := readProductInfo(filepath.Join(sysPath, linkedFile, "../uevent"))
		if !ok || !includeDevice(vendorID, productID) {
			continue
		}
		results = append(results, Description{
			VendorID:  vendorID,
			ProductID: productID,
			Path:      filepath.Join("/dev", device.Name()),
		})
	}
	return results
}

// readProductInfo extracts the vendor and product IDs from a uevent file's
// PRODUCT= line.
func readProductInfo(ueventPath string) (int, int, bool) {
	//nolint:gosec
	ueventFile, err := os.Open(ueventPath)
	if err != nil {
		return 0, 0, false
	}
	defer goutils.UncheckedErrorFunc(ueventFile.Close)

	reader := bufio.NewReader(ueventFile)
	for {
		line, _, err := reader.ReadLine()
		if err != nil {
			return 0, 0, false
		}
		const productPrefix = "PRODUCT="
		lineStr := string(line)
		if !strings.HasPrefix(lineStr, productPrefix) {
			continue
		}
		productInfoParts := strings.Split(strings.TrimPrefix(lineStr, productPrefix), "/")
		if len(productInfoParts) < 2 {
			continue
		}
		vendorID, err := strconv.ParseInt(productInfoParts[0], 16, 64)
		if err != nil {
			continue
		}
		productID, err := strconv.ParseInt(productInfoParts[1], 16, 64)
		if err != nil {
			continue
		}
		return int(vendorID), int(productID), true
	}
}
