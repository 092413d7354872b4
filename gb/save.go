package gb

import "fmt"

// encodeSaveData serializes the external RAM followed by the clock snapshot
// for cartridges having one.
func encodeSaveData(m Mapper) []byte {
	ram := m.RAM()
	data := make([]byte, len(ram), len(ram)+rtcSnapshotSize)
	copy(data, ram)
	if cm, ok := m.(clockMapper); ok && cm.clock() != nil {
		data = append(data, cm.clock().snapshot()...)
	}
	return data
}

// decodeSaveData restores save data. On error the RAM is left untouched, it
// is zeroed from power up.
func decodeSaveData(m Mapper, data []byte) error {
	ram := m.RAM()
	var clock *rtc
	if cm, ok := m.(clockMapper); ok {
		clock = cm.clock()
	}
	switch {
	case len(data) == len(ram):
		copy(ram, data)
	case clock != nil && len(data) == len(ram)+rtcSnapshotSize:
		copy(ram, data)
		clock.restore(data[len(ram):])
	default:
		return fmt.Errorf("save data has %d bytes, the cartridge has %d bytes of RAM", len(data), len(ram))
	}
	return nil
}
