package canid

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for devType := uint8(0); devType < 32; devType++ {
		for class := uint8(0); class < 64; class += 7 {
			for idx := uint8(0); idx < 16; idx++ {
				for devNo := uint8(0); devNo < 64; devNo += 5 {
					in := ID{
						DeviceType:   devType,
						Manufacturer: ManufacturerTI,
						APIClass:     class,
						APIIndex:     idx,
						DeviceNo:     devNo,
					}
					got := Decode(in.Encode())
					if got != in {
						t.Fatalf("round trip mismatch: in=%+v got=%+v", in, got)
					}
				}
			}
		}
	}
}

func TestWellKnownIDsAreBroadcast(t *testing.T) {
	for _, id := range []ID{Halt(), Resume(), Reset(), Enumerate(), Assign(), Sync(), Heartbeat()} {
		if !id.IsBroadcast() {
			t.Errorf("expected broadcast id, got %+v", id)
		}
	}
}

func TestDeviceAddressedIDsCarryDeviceNumber(t *testing.T) {
	id := DeviceQuery(7)
	if id.DeviceNo != 7 {
		t.Errorf("DeviceNo = %d, want 7", id.DeviceNo)
	}
	if id.IsBroadcast() {
		t.Errorf("device-addressed id reported as broadcast")
	}
}

func TestEncodeMasksToWireWidth(t *testing.T) {
	id := ID{DeviceType: 0xFF, Manufacturer: 0xFF, APIClass: 0x3F, APIIndex: 0xF, DeviceNo: 0x3F}
	if id.Encode()&^WireMask != 0 {
		t.Errorf("encoded id escapes 29-bit wire mask: %#x", id.Encode())
	}
}
