package params

const (
	SecParam = 256
	SecBytes = SecParam / 8

	// BytesScalar is the size of a canonical scalar encoding.
	BytesScalar = 32
	// BytesPoint is the size of a compressed point encoding, the identity
	// is encoded as BytesPoint zero bytes.
	BytesPoint = 33
	// BytesCiphertext = c₁ ∥ c₂
	BytesCiphertext = 2 * BytesPoint

	// AccountVersion is written as the first byte of every account buffer.
	// A zero version byte is only valid for an all zero buffer.
	AccountVersion = 1

	// BytesUser = version ∥ initialized ∥ (flag ∥ pk) ∥ c₁ ∥ c₂ ∥ (flag ∥ m) ∥ verified ∥ token ∥ payment
	BytesUser = 1 + 1 + (1 + BytesPoint) + BytesCiphertext + (1 + BytesPoint) + 1 + BytesPoint + 1 // = 171

	// BytesPoliciesHeader = version ∥ initialized ∥ count (u16)
	BytesPoliciesHeader = 1 + 1 + 2

	// MaxPolicies is the number of weights addressable with a u8 index.
	MaxPolicies = 256

	// MaxInteractions bounds the number of interactions folded in a single call.
	MaxInteractions = 64
)

// BytesPolicies returns the size of a policies account holding n weights.
func BytesPolicies(n int) int {
	return BytesPoliciesHeader + n*BytesScalar
}
