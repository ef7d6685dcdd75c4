//go:build darwin

package native

import (
	"fmt"
	"os/exec"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Framework locations. MultitouchSupport is a private framework; the
// actuator symbols have been stable across macOS releases but carry no
// compatibility guarantee.
const (
	pathCoreFoundation      = "/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation"
	pathCoreGraphics        = "/System/Library/Frameworks/CoreGraphics.framework/CoreGraphics"
	pathIOKit               = "/System/Library/Frameworks/IOKit.framework/IOKit"
	pathApplicationServices = "/System/Library/Frameworks/ApplicationServices.framework/ApplicationServices"
	pathMultitouchSupport   = "/System/Library/PrivateFrameworks/MultitouchSupport.framework/MultitouchSupport"
)

// Registry property keys and the multitouch device class.
const (
	deviceClassMultitouch   = "AppleMultitouchDevice"
	propKeyMultitouchID     = "Multitouch ID"
	propKeyActuationSupport = "ActuationSupported"
	propKeyBuiltIn          = "MT Built-In"
	propKeyProduct          = "Product"
)

// CoreFoundation constants.
const (
	cfStringEncodingUTF8 = 0x08000100
	cfNumberSInt64Type   = 4
)

// CoreGraphics event tap constants.
const (
	cgSessionEventTap      = 1 // session scope
	cgHeadInsertEventTap   = 0
	cgEventTapOptionListen = 1 // listen-only, passive
)

// bindings holds every registered native function pointer.
type bindings struct {
	// CoreFoundation
	cfRelease                     func(ref uintptr)
	cfStringCreateWithCString     func(alloc uintptr, cstr string, encoding uint32) uintptr
	cfStringGetCString            func(str uintptr, buf *byte, bufLen int64, encoding uint32) bool
	cfBooleanGetValue             func(ref uintptr) bool
	cfNumberGetValue              func(num uintptr, numType int64, out unsafe.Pointer) bool
	cfDictionaryCreate            func(alloc uintptr, keys, values *uintptr, count int64, keyCB, valueCB uintptr) uintptr
	cfMachPortCreateRunLoopSource func(alloc, port uintptr, order int64) uintptr
	cfRunLoopGetMain              func() uintptr
	cfRunLoopAddSource            func(rl, src, mode uintptr)
	cfRunLoopRemoveSource         func(rl, src, mode uintptr)
	cfRunLoopRun                  func()
	cfRunLoopStop                 func(rl uintptr)

	// IOKit
	ioServiceMatching               func(name string) uintptr
	ioServiceGetMatchingServices    func(masterPort uint32, matching uintptr, existing *uint32) int32
	ioIteratorNext                  func(iter uint32) uint32
	ioObjectRelease                 func(obj uint32) int32
	ioRegistryEntryCreateCFProperty func(entry uint32, key uintptr, alloc uintptr, options uint32) uintptr

	// MultitouchSupport
	mtActuatorCreateFromDeviceID func(deviceID uint64) uintptr
	mtActuatorOpen               func(ref uintptr) int32
	mtActuatorClose              func(ref uintptr) int32
	mtActuatorActuate            func(ref uintptr, actuationID int32, unused uint32, intensity float32, unusedF float32) int32
	mtActuatorIsOpen             func(ref uintptr) bool

	// CoreGraphics
	cgEventTapCreate func(location, place, options uint32, mask uint64, callback, userInfo uintptr) uintptr
	cgEventTapEnable func(port uintptr, enable bool)

	// ApplicationServices
	axIsProcessTrusted            func() bool
	axIsProcessTrustedWithOptions func(options uintptr) bool

	// Resolved constant symbols.
	runLoopCommonModes uintptr
	booleanTrue        uintptr
	dictKeyCallbacks   uintptr
	dictValueCallbacks uintptr

	// Interned property key CFStrings, created once and never released.
	keyMultitouchID       uintptr
	keyActuationSupported uintptr
	keyBuiltIn            uintptr
	keyProduct            uintptr
}

// Load resolves the macOS bindings. Frameworks are opened once per call;
// construct a single Platform at process start and share it.
func Load() (*Platform, error) {
	b := &bindings{}

	cf, err := purego.Dlopen(pathCoreFoundation, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("load CoreFoundation: %w", err)
	}
	cg, err := purego.Dlopen(pathCoreGraphics, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("load CoreGraphics: %w", err)
	}
	iokit, err := purego.Dlopen(pathIOKit, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("load IOKit: %w", err)
	}
	appsvc, err := purego.Dlopen(pathApplicationServices, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("load ApplicationServices: %w", err)
	}
	mt, err := purego.Dlopen(pathMultitouchSupport, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("load MultitouchSupport: %w", err)
	}

	purego.RegisterLibFunc(&b.cfRelease, cf, "CFRelease")
	purego.RegisterLibFunc(&b.cfStringCreateWithCString, cf, "CFStringCreateWithCString")
	purego.RegisterLibFunc(&b.cfStringGetCString, cf, "CFStringGetCString")
	purego.RegisterLibFunc(&b.cfBooleanGetValue, cf, "CFBooleanGetValue")
	purego.RegisterLibFunc(&b.cfNumberGetValue, cf, "CFNumberGetValue")
	purego.RegisterLibFunc(&b.cfDictionaryCreate, cf, "CFDictionaryCreate")
	purego.RegisterLibFunc(&b.cfMachPortCreateRunLoopSource, cf, "CFMachPortCreateRunLoopSource")
	purego.RegisterLibFunc(&b.cfRunLoopGetMain, cf, "CFRunLoopGetMain")
	purego.RegisterLibFunc(&b.cfRunLoopAddSource, cf, "CFRunLoopAddSource")
	purego.RegisterLibFunc(&b.cfRunLoopRemoveSource, cf, "CFRunLoopRemoveSource")
	purego.RegisterLibFunc(&b.cfRunLoopRun, cf, "CFRunLoopRun")
	purego.RegisterLibFunc(&b.cfRunLoopStop, cf, "CFRunLoopStop")

	purego.RegisterLibFunc(&b.ioServiceMatching, iokit, "IOServiceMatching")
	purego.RegisterLibFunc(&b.ioServiceGetMatchingServices, iokit, "IOServiceGetMatchingServices")
	purego.RegisterLibFunc(&b.ioIteratorNext, iokit, "IOIteratorNext")
	purego.RegisterLibFunc(&b.ioObjectRelease, iokit, "IOObjectRelease")
	purego.RegisterLibFunc(&b.ioRegistryEntryCreateCFProperty, iokit, "IORegistryEntryCreateCFProperty")

	purego.RegisterLibFunc(&b.mtActuatorCreateFromDeviceID, mt, "MTActuatorCreateFromDeviceID")
	purego.RegisterLibFunc(&b.mtActuatorOpen, mt, "MTActuatorOpen")
	purego.RegisterLibFunc(&b.mtActuatorClose, mt, "MTActuatorClose")
	purego.RegisterLibFunc(&b.mtActuatorActuate, mt, "MTActuatorActuate")
	purego.RegisterLibFunc(&b.mtActuatorIsOpen, mt, "MTActuatorIsOpen")

	purego.RegisterLibFunc(&b.cgEventTapCreate, cg, "CGEventTapCreate")
	purego.RegisterLibFunc(&b.cgEventTapEnable, cg, "CGEventTapEnable")

	purego.RegisterLibFunc(&b.axIsProcessTrusted, appsvc, "AXIsProcessTrusted")
	purego.RegisterLibFunc(&b.axIsProcessTrustedWithOptions, appsvc, "AXIsProcessTrustedWithOptions")

	if err := b.resolveConstants(cf); err != nil {
		return nil, err
	}

	b.keyMultitouchID = b.newCFString(propKeyMultitouchID)
	b.keyActuationSupported = b.newCFString(propKeyActuationSupport)
	b.keyBuiltIn = b.newCFString(propKeyBuiltIn)
	b.keyProduct = b.newCFString(propKeyProduct)

	return &Platform{
		Registry: &darwinRegistry{b: b},
		Actuator: &darwinActuator{b: b},
		Tap:      &darwinTap{b: b},
		Trust:    &darwinTrust{b: b},
		Loop:     &darwinRunLoop{b: b},
	}, nil
}

// resolveConstants looks up exported CoreFoundation data symbols.
func (b *bindings) resolveConstants(cf uintptr) error {
	for _, sym := range []struct {
		name  string
		deref bool
		dst   *uintptr
	}{
		{"kCFRunLoopCommonModes", true, &b.runLoopCommonModes},
		{"kCFBooleanTrue", true, &b.booleanTrue},
		{"kCFTypeDictionaryKeyCallBacks", false, &b.dictKeyCallbacks},
		{"kCFTypeDictionaryValueCallBacks", false, &b.dictValueCallbacks},
	} {
		addr, err := purego.Dlsym(cf, sym.name)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", sym.name, err)
		}
		if sym.deref {
			*sym.dst = *(*uintptr)(unsafe.Pointer(addr))
		} else {
			*sym.dst = addr
		}
	}
	return nil
}

func (b *bindings) newCFString(s string) uintptr {
	return b.cfStringCreateWithCString(0, s, cfStringEncodingUTF8)
}

// goString copies a CFString's contents into a Go string.
func (b *bindings) goString(ref uintptr) string {
	if ref == 0 {
		return ""
	}
	buf := make([]byte, 256)
	if !b.cfStringGetCString(ref, &buf[0], int64(len(buf)), cfStringEncodingUTF8) {
		return ""
	}
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// darwinRegistry enumerates the AppleMultitouchDevice registry class.
type darwinRegistry struct {
	b *bindings
}

func (r *darwinRegistry) Enumerate() (DeviceIterator, error) {
	// IOServiceGetMatchingServices consumes the matching dictionary.
	matching := r.b.ioServiceMatching(deviceClassMultitouch)
	if matching == 0 {
		return nil, fmt.Errorf("registry matching dictionary for %q unavailable", deviceClassMultitouch)
	}

	var iter uint32
	if status := r.b.ioServiceGetMatchingServices(0, matching, &iter); status != 0 {
		return nil, &StatusError{Op: "registry query", Code: status}
	}
	return &darwinIterator{b: r.b, iter: iter}, nil
}

// darwinIterator owns an io_iterator_t and releases it on Close.
type darwinIterator struct {
	b      *bindings
	iter   uint32
	closed bool
}

func (it *darwinIterator) Next() (DeviceProperties, bool) {
	if it.closed {
		return DeviceProperties{}, false
	}
	entry := it.b.ioIteratorNext(it.iter)
	if entry == 0 {
		return DeviceProperties{}, false
	}
	defer it.b.ioObjectRelease(entry)

	props := DeviceProperties{
		MultitouchID:       it.readNumber(entry, it.b.keyMultitouchID),
		ActuationSupported: it.readBool(entry, it.b.keyActuationSupported),
		BuiltIn:            it.readBool(entry, it.b.keyBuiltIn),
		Product:            it.readString(entry, it.b.keyProduct),
	}
	return props, true
}

func (it *darwinIterator) Err() error { return nil }

func (it *darwinIterator) Close() {
	if it.closed {
		return
	}
	it.closed = true
	if it.iter != 0 {
		it.b.ioObjectRelease(it.iter)
		it.iter = 0
	}
}

func (it *darwinIterator) readBool(entry uint32, key uintptr) bool {
	ref := it.b.ioRegistryEntryCreateCFProperty(entry, key, 0, 0)
	if ref == 0 {
		return false
	}
	defer it.b.cfRelease(ref)
	return it.b.cfBooleanGetValue(ref)
}

func (it *darwinIterator) readNumber(entry uint32, key uintptr) uint64 {
	ref := it.b.ioRegistryEntryCreateCFProperty(entry, key, 0, 0)
	if ref == 0 {
		return 0
	}
	defer it.b.cfRelease(ref)
	var v int64
	if !it.b.cfNumberGetValue(ref, cfNumberSInt64Type, unsafe.Pointer(&v)) {
		return 0
	}
	return uint64(v)
}

func (it *darwinIterator) readString(entry uint32, key uintptr) string {
	ref := it.b.ioRegistryEntryCreateCFProperty(entry, key, 0, 0)
	if ref == 0 {
		return ""
	}
	defer it.b.cfRelease(ref)
	return it.b.goString(ref)
}

// darwinActuator binds the MTActuator calls.
type darwinActuator struct {
	b *bindings
}

func (a *darwinActuator) Create(deviceID uint64) (ActuatorRef, error) {
	ref := a.b.mtActuatorCreateFromDeviceID(deviceID)
	if ref == 0 {
		return 0, ErrCreateFailed
	}
	return ActuatorRef(ref), nil
}

func (a *darwinActuator) Open(ref ActuatorRef) error {
	if status := a.b.mtActuatorOpen(uintptr(ref)); status != 0 {
		return &StatusError{Op: "open", Code: status}
	}
	return nil
}

func (a *darwinActuator) Actuate(ref ActuatorRef, code int32, reserved uint32, intensity float32, reservedF float32) error {
	if status := a.b.mtActuatorActuate(uintptr(ref), code, reserved, intensity, reservedF); status != 0 {
		return &StatusError{Op: "actuate", Code: status}
	}
	return nil
}

func (a *darwinActuator) Close(ref ActuatorRef) error {
	if status := a.b.mtActuatorClose(uintptr(ref)); status != 0 {
		return &StatusError{Op: "close", Code: status}
	}
	return nil
}

func (a *darwinActuator) IsOpen(ref ActuatorRef) bool {
	return a.b.mtActuatorIsOpen(uintptr(ref))
}

func (a *darwinActuator) Release(ref ActuatorRef) {
	if ref != 0 {
		a.b.cfRelease(uintptr(ref))
	}
}

// darwinTap binds the CoreGraphics event tap calls.
type darwinTap struct {
	b *bindings

	// purego callbacks can never be freed, so the trampoline is created
	// once per darwinTap and reused across create/release cycles. It
	// dispatches to whatever callback the latest CreateKeyDownTap set.
	mu             sync.Mutex
	cb             TapCallback
	trampolineOnce sync.Once
	trampoline     uintptr
}

func (t *darwinTap) CreateKeyDownTap(cb TapCallback) (TapRef, error) {
	t.mu.Lock()
	t.cb = cb
	t.mu.Unlock()

	t.trampolineOnce.Do(func() {
		t.trampoline = purego.NewCallback(func(proxy, eventType, event, userInfo uintptr) uintptr {
			t.mu.Lock()
			fn := t.cb
			t.mu.Unlock()
			if fn == nil {
				return event
			}
			return uintptr(fn(proxy, EventType(eventType), EventRef(event)))
		})
	})

	mask := uint64(1) << uint64(EventKeyDown)
	port := t.b.cgEventTapCreate(cgSessionEventTap, cgHeadInsertEventTap, cgEventTapOptionListen, mask, t.trampoline, 0)
	if port == 0 {
		return 0, ErrTapCreateFailed
	}
	return TapRef(port), nil
}

func (t *darwinTap) Enable(tap TapRef, enabled bool) {
	t.b.cgEventTapEnable(uintptr(tap), enabled)
}

func (t *darwinTap) CreateRunLoopSource(tap TapRef) (SourceRef, error) {
	src := t.b.cfMachPortCreateRunLoopSource(0, uintptr(tap), 0)
	if src == 0 {
		return 0, fmt.Errorf("run-loop source creation failed")
	}
	return SourceRef(src), nil
}

func (t *darwinTap) AddSource(src SourceRef) {
	// Always the main run loop: Start may be called from the trust
	// poll goroutine, but the tap must fire where CFRunLoopRun runs.
	t.b.cfRunLoopAddSource(t.b.cfRunLoopGetMain(), uintptr(src), t.b.runLoopCommonModes)
}

func (t *darwinTap) RemoveSource(src SourceRef) {
	t.b.cfRunLoopRemoveSource(t.b.cfRunLoopGetMain(), uintptr(src), t.b.runLoopCommonModes)
}

func (t *darwinTap) ReleaseTap(tap TapRef) {
	if tap != 0 {
		t.b.cfRelease(uintptr(tap))
	}
}

func (t *darwinTap) ReleaseSource(src SourceRef) {
	if src != 0 {
		t.b.cfRelease(uintptr(src))
	}
}

// darwinTrust binds the accessibility trust queries.
type darwinTrust struct {
	b *bindings
}

func (t *darwinTrust) IsTrusted() bool {
	return t.b.axIsProcessTrusted()
}

func (t *darwinTrust) IsTrustedWithPrompt(prompt bool) bool {
	if !prompt {
		return t.b.axIsProcessTrusted()
	}
	key := t.b.newCFString("AXTrustedCheckOptionPrompt")
	defer t.b.cfRelease(key)

	keys := key
	values := t.b.booleanTrue
	opts := t.b.cfDictionaryCreate(0, &keys, &values, 1, t.b.dictKeyCallbacks, t.b.dictValueCallbacks)
	if opts == 0 {
		return t.b.axIsProcessTrusted()
	}
	defer t.b.cfRelease(opts)
	return t.b.axIsProcessTrustedWithOptions(opts)
}

func (t *darwinTrust) OpenPrivacySettings() error {
	return exec.Command("open", "x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility").Start()
}

// darwinRunLoop drives the current thread's CFRunLoop.
type darwinRunLoop struct {
	b *bindings
}

func (l *darwinRunLoop) Run() {
	l.b.cfRunLoopRun()
}

func (l *darwinRunLoop) Stop() {
	l.b.cfRunLoopStop(l.b.cfRunLoopGetMain())
}
