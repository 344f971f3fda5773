package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var ErrPickerCancelled = errors.New("device selection cancelled")

type pickerKey int

const (
	keyNone pickerKey = iota
	keyUp
	keyDown
	keyConfirm
	keyCancel
)

// decodeKey maps one raw-mode read to a picker key. Arrows arrive as the
// three byte sequence ESC [ A/B.
func decodeKey(b []byte) pickerKey {
	switch {
	case len(b) == 1 && b[0] == '\r', len(b) == 1 && b[0] == '\n':
		return keyConfirm
	case len(b) == 1 && (b[0] == 3 || b[0] == 'q'):
		return keyCancel
	case len(b) == 1 && b[0] == 'k', len(b) == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'A':
		return keyUp
	case len(b) == 1 && b[0] == 'j', len(b) == 3 && b[0] == 0x1b && b[1] == '[' && b[2] == 'B':
		return keyDown
	}
	return keyNone
}

func drawPicker(w io.Writer, devices []DeviceInfo, cursor int) {
	fmt.Fprint(w, "\r\x1b[J")
	fmt.Fprint(w, "Select output device (↑/↓, Enter to confirm):\r\n\r\n")
	for i, d := range devices {
		tag := ""
		if IsBluetooth(d.Name) {
			tag = " \x1b[33m[⚠ Clicks may lag]\x1b[0m"
		}
		if i == cursor {
			fmt.Fprintf(w, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
		} else {
			fmt.Fprintf(w, "    %s%s\r\n", d.Name, tag)
		}
	}
}

// pick runs the picker loop over r until a device is confirmed.
func pick(r io.Reader, w io.Writer, devices []DeviceInfo) (*DeviceInfo, error) {
	cursor := 0
	drawPicker(w, devices, cursor)

	buf := make([]byte, 3)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch decodeKey(buf[:n]) {
		case keyConfirm:
			fmt.Fprint(w, "\r\n")
			return &devices[cursor], nil
		case keyCancel:
			fmt.Fprint(w, "\r\n")
			return nil, ErrPickerCancelled
		case keyUp:
			cursor = max(cursor-1, 0)
		case keyDown:
			cursor = min(cursor+1, len(devices)-1)
		}
		fmt.Fprintf(w, "\x1b[%dA", len(devices)+2)
		drawPicker(w, devices, cursor)
	}
}

// SelectDevice lets the user pick an output on the terminal. With a single
// device it returns that one without asking; backends that cannot list
// outputs yield nil, the system default.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, nil
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("device picker needs a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	return pick(os.Stdin, os.Stdout, devices)
}

// DeviceLabel is the name shown in status lines, with a warning tag for
// Bluetooth outputs.
func DeviceLabel(d *DeviceInfo) string {
	if d == nil {
		return "default output"
	}
	if IsBluetooth(d.Name) {
		return d.Name + " (bluetooth)"
	}
	return d.Name
}
