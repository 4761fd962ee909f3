package serial

import (
	"testing"

	"go.viam.com/test"
)

func TestIsHub(t *testing.T) {
	test.That(t, IsHub(0x0694, 0x0008), test.ShouldBeTrue)
	test.That(t, IsHub(0x0694, 0x0010), test.ShouldBeTrue)
	test.That(t, IsHub(0x0694, 0x0001), test.ShouldBeFalse)
	test.That(t, IsHub(0x2341, 0x0043), test.ShouldBeFalse)
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open("")
	test.That(t, err, test.ShouldNotBeNil)
}
