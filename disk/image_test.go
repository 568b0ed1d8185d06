package disk

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"
)

func TestImageRoundTrip(t *testing.T) {
	sectors := make([]Sector, sectorsPerDrive)
	sectors[0].Header[0] = 0x1234
	sectors[0].Label[3] = 0xBEEF
	sectors[0].Data[255] = 0xCAFE
	sectors[sectorsPerDrive-1].Data[0] = 0x0001

	var buf bytes.Buffer
	if err := EncodeImage(&buf, sectors); err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}

	got, err := DecodeImage(&buf)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if diff := deep.Equal(sectors, got); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestDecodeImageRejectsTruncatedInput(t *testing.T) {
	sectors := make([]Sector, sectorsPerDrive)
	var buf bytes.Buffer
	if err := EncodeImage(&buf, sectors); err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-1])
	if _, err := DecodeImage(truncated); err == nil {
		t.Error("DecodeImage on truncated input: want error, got nil")
	}
}

func TestEncodeImageRejectsWrongSectorCount(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeImage(&buf, make([]Sector, 1)); err == nil {
		t.Error("EncodeImage with wrong sector count: want error, got nil")
	}
}
