//go:build windows

package osintegration

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"
)

const (
	internetOptionPerConnectionOption  = 75
	internetOptionSettingsChanged      = 39
	internetOptionRefresh              = 37
	internetPerConnFlags                = 1
	internetPerConnProxyServer          = 2
	internetPerConnProxyBypass          = 3
	internetPerConnAutoconfigURL        = 4
	pfrsFlagsProxy                      = 2
	pfrsFlagsDirect                     = 1
	pfrsFlagsAutoProxyURL               = 4
)

var (
	wininet               = syscall.NewLazyDLL("wininet.dll")
	procInternetSetOptionW = wininet.NewProc("InternetSetOptionW")
)

// internetPerConnOptionList mirrors WinINet's INTERNET_PER_CONN_OPTION_LIST,
// the structure the original Rust implementation builds via the
// `windows` crate's `InternetSetOptionW(..., INTERNET_OPTION_PER_CONNECTION_OPTION, ...)`
// call (atoms/system_proxy/manager.rs).
type internetPerConnOptionList struct {
	size        uint32
	connection  *uint16
	optionCount uint32
	optionError uint32
	options     uintptr
}

type internetPerConnOptionUnion struct {
	optionKind uint32
	value      uint64 // holds either a DWORD or a *uint16, widened
}

func enableSystemProxy(cfg SystemProxyConfig) error {
	var flags uint32 = pfrsFlagsDirect
	var proxy, bypass, autoconfig *uint16
	var err error

	if cfg.UsePACMode {
		flags = pfrsFlagsAutoProxyURL
		url := cfg.PACFilePath
		if url == "" {
			url = cfg.PACScript
		}
		autoconfig, err = syscall.UTF16PtrFromString(url)
		if err != nil {
			return fmt.Errorf("encode PAC URL: %w", err)
		}
	} else {
		flags = pfrsFlagsProxy
		proxy, err = syscall.UTF16PtrFromString(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
		if err != nil {
			return fmt.Errorf("encode proxy server: %w", err)
		}
		bypass, err = syscall.UTF16PtrFromString(strings.Join(cfg.BypassDomains, ";"))
		if err != nil {
			return fmt.Errorf("encode bypass list: %w", err)
		}
	}

	if err := setPerConnectionOptions(flags, proxy, bypass, autoconfig); err != nil {
		return err
	}
	notifySettingsChanged()
	return nil
}

func disableSystemProxy() error {
	if err := setPerConnectionOptions(pfrsFlagsDirect, nil, nil, nil); err != nil {
		return err
	}
	notifySettingsChanged()
	return nil
}

func querySystemProxy() (SystemProxyStatus, error) {
	// WinINet exposes no single read-back call as simple as the set
	// path; the original implementation reads the same registry values
	// InternetSetOptionW writes (HKCU\...\Internet Settings).
	enabled, server, err := readProxyRegistryValues()
	if err != nil {
		return SystemProxyStatus{}, err
	}
	return SystemProxyStatus{Enabled: enabled, Server: server}, nil
}

func setPerConnectionOptions(flags uint32, proxy, bypass, autoconfig *uint16) error {
	var opts []internetPerConnOptionUnion
	opts = append(opts, internetPerConnOptionUnion{optionKind: internetPerConnFlags, value: uint64(flags)})
	if proxy != nil {
		opts = append(opts, internetPerConnOptionUnion{optionKind: internetPerConnProxyServer, value: uint64(uintptr(unsafe.Pointer(proxy)))})
	}
	if bypass != nil {
		opts = append(opts, internetPerConnOptionUnion{optionKind: internetPerConnProxyBypass, value: uint64(uintptr(unsafe.Pointer(bypass)))})
	}
	if autoconfig != nil {
		opts = append(opts, internetPerConnOptionUnion{optionKind: internetPerConnAutoconfigURL, value: uint64(uintptr(unsafe.Pointer(autoconfig)))})
	}

	list := internetPerConnOptionList{
		size:        uint32(unsafe.Sizeof(internetPerConnOptionList{})),
		connection:  nil, // nil targets the system-wide default connection (LAN)
		optionCount: uint32(len(opts)),
		options:     uintptr(unsafe.Pointer(&opts[0])),
	}

	ret, _, callErr := procInternetSetOptionW.Call(
		0,
		internetOptionPerConnectionOption,
		uintptr(unsafe.Pointer(&list)),
		unsafe.Sizeof(list),
	)
	if ret == 0 {
		return fmt.Errorf("InternetSetOptionW(PER_CONNECTION_OPTION): %w", callErr)
	}
	return nil
}

func notifySettingsChanged() {
	procInternetSetOptionW.Call(0, internetOptionSettingsChanged, 0, 0)
	procInternetSetOptionW.Call(0, internetOptionRefresh, 0, 0)
}
