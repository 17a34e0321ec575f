package utils

import "fmt"

// CollapseAddress shortens an address for display: 0x1234...abcd.
func CollapseAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// AvatarURL returns the placeholder avatar used when the account has no ENS avatar.
func AvatarURL(address string) string {
	return fmt.Sprintf("https://i.pravatar.cc/75?u=%s", address)
}
