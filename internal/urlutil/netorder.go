package urlutil

// Htons/Ntohs/Htonl/Ntohl convert between host and network byte order. They
// always byte-swap, whatever the build host's byte order, which is the
// conversion a little-endian host needs; the round trip ntohs(htons(x)) == x
// holds either way.
func Htons(x uint16) uint16 {
	return x<<8 | x>>8
}

func Ntohs(x uint16) uint16 {
	return Htons(x)
}

func Htonl(x uint32) uint32 {
	return (x&0x000000ff)<<24 |
		(x&0x0000ff00)<<8 |
		(x&0x00ff0000)>>8 |
		(x&0xff000000)>>24
}

func Ntohl(x uint32) uint32 {
	return Htonl(x)
}
