package cart

// DefaultKey is the storage key the cart is persisted under.
const DefaultKey = "@GoMarket:products"

// Keys names the storage keys the store reads on Load and writes on every
// mutation.
type Keys struct {
	Load string
	Save string
}

// DefaultKeys reads and writes the same key, so a saved cart is found again
// on the next start.
func DefaultKeys() Keys {
	return Keys{Load: DefaultKey, Save: DefaultKey}
}

// LegacyKeys reproduces the mobile app's historical split: it loaded from
// "products" but saved to "@GoMarket:products", so a saved cart was never
// reloaded. Use it only to read data written by that build.
func LegacyKeys() Keys {
	return Keys{Load: "products", Save: DefaultKey}
}
