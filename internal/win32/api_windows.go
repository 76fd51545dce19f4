//go:build windows

package win32

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	shell32  = windows.NewLazySystemDLL("shell32.dll")

	procRegisterClassExW       = user32.NewProc("RegisterClassExW")
	procUnregisterClassW       = user32.NewProc("UnregisterClassW")
	procCreateWindowExW        = user32.NewProc("CreateWindowExW")
	procDestroyWindow          = user32.NewProc("DestroyWindow")
	procDefWindowProcW         = user32.NewProc("DefWindowProcW")
	procGetMessageW            = user32.NewProc("GetMessageW")
	procTranslateMessage       = user32.NewProc("TranslateMessage")
	procDispatchMessageW       = user32.NewProc("DispatchMessageW")
	procPostMessageW           = user32.NewProc("PostMessageW")
	procPostQuitMessage        = user32.NewProc("PostQuitMessage")
	procRegisterWindowMessageW = user32.NewProc("RegisterWindowMessageW")
	procSetWindowsHookExW      = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx    = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx         = user32.NewProc("CallNextHookEx")
	procGetSystemMetrics       = user32.NewProc("GetSystemMetrics")
	procSetLayeredWindowAttrs  = user32.NewProc("SetLayeredWindowAttributes")
	procSetWindowRgn           = user32.NewProc("SetWindowRgn")
	procShowWindow             = user32.NewProc("ShowWindow")
	procSetWindowPos           = user32.NewProc("SetWindowPos")
	procGetCursorPos           = user32.NewProc("GetCursorPos")
	procCreatePopupMenu        = user32.NewProc("CreatePopupMenu")
	procAppendMenuW            = user32.NewProc("AppendMenuW")
	procTrackPopupMenu         = user32.NewProc("TrackPopupMenu")
	procDestroyMenu            = user32.NewProc("DestroyMenu")
	procSetForegroundWindow    = user32.NewProc("SetForegroundWindow")
	procCreateIconIndirect     = user32.NewProc("CreateIconIndirect")
	procDestroyIcon            = user32.NewProc("DestroyIcon")
	procMessageBoxW            = user32.NewProc("MessageBoxW")
	procCreateRectRgn          = gdi32.NewProc("CreateRectRgn")
	procCreateEllipticRgn      = gdi32.NewProc("CreateEllipticRgn")
	procCombineRgn             = gdi32.NewProc("CombineRgn")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procGetStockObject         = gdi32.NewProc("GetStockObject")
	procCreateBitmap           = gdi32.NewProc("CreateBitmap")
	procCreateDIBSection       = gdi32.NewProc("CreateDIBSection")
	procGetModuleHandleW       = kernel32.NewProc("GetModuleHandleW")
	procGetTickCount           = kernel32.NewProc("GetTickCount")
	procShellNotifyIconW       = shell32.NewProc("Shell_NotifyIconW")
)

// Window messages.
const (
	WM_CREATE        = 0x0001
	WM_DESTROY       = 0x0002
	WM_CLOSE         = 0x0010
	WM_COMMAND       = 0x0111
	WM_MOUSEMOVE     = 0x0200
	WM_LBUTTONDOWN   = 0x0201
	WM_LBUTTONUP     = 0x0202
	WM_LBUTTONDBLCLK = 0x0203
	WM_RBUTTONDOWN   = 0x0204
	WM_RBUTTONUP     = 0x0205
	WM_MBUTTONDOWN   = 0x0207
	WM_XBUTTONDOWN   = 0x020B
	WM_KEYDOWN       = 0x0100
	WM_KEYUP         = 0x0101
	WM_SYSKEYDOWN    = 0x0104
	WM_SYSKEYUP      = 0x0105
	WM_USER          = 0x0400
	WM_APP           = 0x8000
)

// Window styles.
const (
	WS_POPUP           = 0x80000000
	WS_EX_TOPMOST      = 0x00000008
	WS_EX_TRANSPARENT  = 0x00000020
	WS_EX_TOOLWINDOW   = 0x00000080
	WS_EX_LAYERED      = 0x00080000
	WS_EX_NOACTIVATE   = 0x08000000
	HWND_MESSAGE       = ^uintptr(2) // (HWND)-3
	HWND_TOPMOST       = ^uintptr(0) // (HWND)-1
	SW_HIDE            = 0
	SW_SHOWNOACTIVATE  = 4
	SWP_NOSIZE         = 0x0001
	SWP_NOMOVE         = 0x0002
	SWP_NOACTIVATE     = 0x0010
	SWP_SHOWWINDOW     = 0x0040
	LWA_ALPHA          = 0x00000002
	SM_XVIRTUALSCREEN  = 76
	SM_YVIRTUALSCREEN  = 77
	SM_CXVIRTUALSCREEN = 78
	SM_CYVIRTUALSCREEN = 79
	RGN_DIFF           = 4
	BLACK_BRUSH        = 4
	BI_RGB             = 0
	DIB_RGB_COLORS     = 0
)

// Hooks.
const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	HC_ACTION      = 0
	VK_CONTROL     = 0x11
	VK_LCONTROL    = 0xA2
	VK_RCONTROL    = 0xA3
	LLKHF_INJECTED = 0x10
)

// Tray and menus.
const (
	NIM_ADD          = 0x00000000
	NIM_MODIFY       = 0x00000001
	NIM_DELETE       = 0x00000002
	NIF_MESSAGE      = 0x00000001
	NIF_ICON         = 0x00000002
	NIF_TIP          = 0x00000004
	MF_STRING        = 0x00000000
	MF_SEPARATOR     = 0x00000800
	TPM_LEFTALIGN    = 0x0000
	TPM_BOTTOMALIGN  = 0x0020
	TPM_RIGHTBUTTON  = 0x0002
	TPM_RETURNCMD    = 0x0100
	MB_OK            = 0x00000000
	MB_ICONERROR     = 0x00000010
	MB_ICONWARNING   = 0x00000030
	MB_SETFOREGROUND = 0x00010000
)

// Point is a POINT.
type Point struct {
	X int32
	Y int32
}

// Msg is a MSG.
type Msg struct {
	Hwnd     windows.HWND
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       Point
	LPrivate uint32
}

// WndClassEx is a WNDCLASSEXW.
type WndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

// KbdLLHookStruct is a KBDLLHOOKSTRUCT.
type KbdLLHookStruct struct {
	VkCode    uint32
	ScanCode  uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// MsLLHookStruct is a MSLLHOOKSTRUCT.
type MsLLHookStruct struct {
	Pt        Point
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// NotifyIconData is a NOTIFYICONDATAW.
type NotifyIconData struct {
	Size            uint32
	Wnd             windows.HWND
	ID              uint32
	Flags           uint32
	CallbackMessage uint32
	Icon            windows.Handle
	Tip             [128]uint16
	State           uint32
	StateMask       uint32
	Info            [256]uint16
	TimeoutVersion  uint32
	InfoTitle       [64]uint16
	InfoFlags       uint32
	GuidItem        windows.GUID
	BalloonIcon     windows.Handle
}

// IconInfo is an ICONINFO.
type IconInfo struct {
	Icon     int32
	XHotspot uint32
	YHotspot uint32
	Mask     windows.Handle
	Color    windows.Handle
}

// BitmapInfoHeader is a BITMAPINFOHEADER.
type BitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

func lastErr(name string, err error) error {
	if err == nil || err == windows.ERROR_SUCCESS {
		return fmt.Errorf("%s failed", name)
	}
	return fmt.Errorf("%s: %w", name, err)
}

// ModuleHandle returns the handle of the running executable.
func ModuleHandle() windows.Handle {
	h, _, _ := procGetModuleHandleW.Call(0)
	return windows.Handle(h)
}

// TickCount returns GetTickCount, the clock stamped on hook events.
func TickCount() uint32 {
	r, _, _ := procGetTickCount.Call()
	return uint32(r)
}

// SetWindowsHookEx installs a global low-level hook on the calling thread.
func SetWindowsHookEx(id int, callback uintptr) (windows.Handle, error) {
	h, _, err := procSetWindowsHookExW.Call(uintptr(id), callback, uintptr(ModuleHandle()), 0)
	if h == 0 {
		return 0, lastErr("SetWindowsHookExW", err)
	}
	return windows.Handle(h), nil
}

// UnhookWindowsHookEx removes a hook.
func UnhookWindowsHookEx(h windows.Handle) error {
	r, _, err := procUnhookWindowsHookEx.Call(uintptr(h))
	if r == 0 {
		return lastErr("UnhookWindowsHookEx", err)
	}
	return nil
}

// CallNextHookEx passes a hook event along the chain.
func CallNextHookEx(code int, wParam, lParam uintptr) uintptr {
	r, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return r
}

// VirtualScreen returns the bounding box of all monitors.
func VirtualScreen() (x, y, w, h int32) {
	metric := func(i uintptr) int32 {
		r, _, _ := procGetSystemMetrics.Call(i)
		return int32(r)
	}
	return metric(SM_XVIRTUALSCREEN), metric(SM_YVIRTUALSCREEN),
		metric(SM_CXVIRTUALSCREEN), metric(SM_CYVIRTUALSCREEN)
}

// CursorPos returns the cursor position in virtual-desktop coordinates.
func CursorPos() (Point, error) {
	var pt Point
	r, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if r == 0 {
		return pt, lastErr("GetCursorPos", err)
	}
	return pt, nil
}

// SetLayeredAlpha sets a uniform alpha on a layered window.
func SetLayeredAlpha(hwnd windows.HWND, alpha uint8) error {
	r, _, err := procSetLayeredWindowAttrs.Call(uintptr(hwnd), 0, uintptr(alpha), LWA_ALPHA)
	if r == 0 {
		return lastErr("SetLayeredWindowAttributes", err)
	}
	return nil
}

// ShowWindow changes the show state of hwnd.
func ShowWindow(hwnd windows.HWND, cmd int) {
	procShowWindow.Call(uintptr(hwnd), uintptr(cmd))
}

// SetWindowPos moves and sizes hwnd, keeping it topmost without activating it.
func SetWindowPos(hwnd windows.HWND, x, y, w, h int32, flags uint32) error {
	r, _, err := procSetWindowPos.Call(uintptr(hwnd), HWND_TOPMOST,
		uintptr(x), uintptr(y), uintptr(w), uintptr(h), uintptr(flags|SWP_NOACTIVATE))
	if r == 0 {
		return lastErr("SetWindowPos", err)
	}
	return nil
}

// RingRegion builds a rectangle of w by h with an elliptic hole
// (left, top, right, bottom), all in window coordinates.
func RingRegion(w, h, left, top, right, bottom int32) (windows.Handle, error) {
	outer, _, err := procCreateRectRgn.Call(0, 0, uintptr(w), uintptr(h))
	if outer == 0 {
		return 0, lastErr("CreateRectRgn", err)
	}
	hole, _, err := procCreateEllipticRgn.Call(uintptr(left), uintptr(top), uintptr(right), uintptr(bottom))
	if hole == 0 {
		DeleteObject(windows.Handle(outer))
		return 0, lastErr("CreateEllipticRgn", err)
	}
	defer DeleteObject(windows.Handle(hole))

	r, _, err := procCombineRgn.Call(outer, outer, hole, RGN_DIFF)
	if r == 0 {
		DeleteObject(windows.Handle(outer))
		return 0, lastErr("CombineRgn", err)
	}
	return windows.Handle(outer), nil
}

// SetWindowRgn hands rgn to the system; the caller must not delete it after
// a successful call.
func SetWindowRgn(hwnd windows.HWND, rgn windows.Handle, redraw bool) error {
	var flag uintptr
	if redraw {
		flag = 1
	}
	r, _, err := procSetWindowRgn.Call(uintptr(hwnd), uintptr(rgn), flag)
	if r == 0 {
		return lastErr("SetWindowRgn", err)
	}
	return nil
}

// DeleteObject releases a GDI object.
func DeleteObject(h windows.Handle) {
	if h != 0 {
		procDeleteObject.Call(uintptr(h))
	}
}

// StockObject returns a stock GDI object such as BLACK_BRUSH.
func StockObject(i int) windows.Handle {
	r, _, _ := procGetStockObject.Call(uintptr(i))
	return windows.Handle(r)
}

// PopupMenuItem is one entry of a context menu. An ID of zero is a separator.
type PopupMenuItem struct {
	ID    uint32
	Label string
}

// TrackPopupMenu shows a context menu at the cursor and returns the chosen
// ID, or zero when the menu was dismissed.
func TrackPopupMenu(owner windows.HWND, items []PopupMenuItem) (uint32, error) {
	menu, _, err := procCreatePopupMenu.Call()
	if menu == 0 {
		return 0, lastErr("CreatePopupMenu", err)
	}
	defer procDestroyMenu.Call(menu)

	for _, it := range items {
		if it.ID == 0 {
			procAppendMenuW.Call(menu, MF_SEPARATOR, 0, 0)
			continue
		}
		label, err := windows.UTF16PtrFromString(it.Label)
		if err != nil {
			return 0, err
		}
		procAppendMenuW.Call(menu, MF_STRING, uintptr(it.ID), uintptr(unsafe.Pointer(label)))
	}

	pt, _ := CursorPos()
	// The owner must be foreground or the menu will not close on an outside click.
	procSetForegroundWindow.Call(uintptr(owner))
	cmd, _, _ := procTrackPopupMenu.Call(menu,
		TPM_BOTTOMALIGN|TPM_LEFTALIGN|TPM_RIGHTBUTTON|TPM_RETURNCMD,
		uintptr(pt.X), uintptr(pt.Y), 0, uintptr(owner), 0)
	PostMessage(owner, 0, 0, 0)
	return uint32(cmd), nil
}

// PostMessage posts msg to hwnd without waiting.
func PostMessage(hwnd windows.HWND, msg uint32, wParam, lParam uintptr) error {
	r, _, err := procPostMessageW.Call(uintptr(hwnd), uintptr(msg), wParam, lParam)
	if r == 0 {
		return lastErr("PostMessageW", err)
	}
	return nil
}

// RegisterWindowMessage returns the system-wide id for name.
func RegisterWindowMessage(name string) uint32 {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0
	}
	r, _, _ := procRegisterWindowMessageW.Call(uintptr(unsafe.Pointer(p)))
	return uint32(r)
}

// ShellNotifyIcon calls Shell_NotifyIconW.
func ShellNotifyIcon(op uint32, nid *NotifyIconData) error {
	nid.Size = uint32(unsafe.Sizeof(*nid))
	r, _, err := procShellNotifyIconW.Call(uintptr(op), uintptr(unsafe.Pointer(nid)))
	if r == 0 {
		return lastErr("Shell_NotifyIconW", err)
	}
	return nil
}

// SetTip copies s into a fixed-size UTF-16 tooltip buffer.
func SetTip(dst []uint16, s string) {
	u, err := windows.UTF16FromString(s)
	if err != nil {
		return
	}
	if len(u) > len(dst) {
		u = u[:len(dst)]
		u[len(u)-1] = 0
	}
	clear(dst)
	copy(dst, u)
}

// CreateIconRGBA builds an HICON from straight (non-premultiplied) RGBA pixels.
func CreateIconRGBA(w, h int, pix []byte) (windows.Handle, error) {
	hdr := BitmapInfoHeader{
		Width:       int32(w),
		Height:      -int32(h), // top-down
		Planes:      1,
		BitCount:    32,
		Compression: BI_RGB,
	}
	hdr.Size = uint32(unsafe.Sizeof(hdr))

	var bits unsafe.Pointer
	color, _, err := procCreateDIBSection.Call(0, uintptr(unsafe.Pointer(&hdr)), DIB_RGB_COLORS,
		uintptr(unsafe.Pointer(&bits)), 0, 0)
	if color == 0 {
		return 0, lastErr("CreateDIBSection", err)
	}
	defer DeleteObject(windows.Handle(color))

	dst := unsafe.Slice((*byte)(bits), w*h*4)
	for i := 0; i+3 < len(pix) && i+3 < len(dst); i += 4 {
		// BGRA
		dst[i+0] = pix[i+2]
		dst[i+1] = pix[i+1]
		dst[i+2] = pix[i+0]
		dst[i+3] = pix[i+3]
	}

	mask, _, err := procCreateBitmap.Call(uintptr(w), uintptr(h), 1, 1, 0)
	if mask == 0 {
		return 0, lastErr("CreateBitmap", err)
	}
	defer DeleteObject(windows.Handle(mask))

	info := IconInfo{Icon: 1, Mask: windows.Handle(mask), Color: windows.Handle(color)}
	icon, _, err := procCreateIconIndirect.Call(uintptr(unsafe.Pointer(&info)))
	if icon == 0 {
		return 0, lastErr("CreateIconIndirect", err)
	}
	return windows.Handle(icon), nil
}

// DestroyIcon releases an icon handle.
func DestroyIcon(h windows.Handle) {
	if h != 0 {
		procDestroyIcon.Call(uintptr(h))
	}
}

// MessageBox shows a modal message box.
func MessageBox(title, text string, flags uint32) {
	t, _ := windows.UTF16PtrFromString(title)
	m, _ := windows.UTF16PtrFromString(text)
	procMessageBoxW.Call(0, uintptr(unsafe.Pointer(m)), uintptr(unsafe.Pointer(t)), uintptr(flags))
}
