// Package venueauth derives venue connection credentials via EIP-712
// wallet signing, grounded on the teacher's exchange.Auth L1 flow
// (internal/exchange/auth.go's signClobAuth/SignTypedData): a wallet
// signs a typed "VenueConnect" message proving control of the address,
// which the SIM adapter presents to the venue on connect().
package venueauth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer holds the wallet key used to authenticate a venue connection.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewSigner constructs a Signer from a hex-encoded private key (with or
// without the "0x" prefix).
func NewSigner(privateKeyHex string, chainID int64) (*Signer, error) {
	if len(privateKeyHex) >= 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("venueauth: parse private key: %w", err)
	}
	return &Signer{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

// Address returns the signer's wallet address.
func (s *Signer) Address() common.Address { return s.address }

// ConnectHeaders produces the headers a SIM-style venue expects on
// connect(): an address, a signature over a typed "VenueConnect"
// message, a timestamp, and a nonce — mirroring the teacher's
// L1Headers/signClobAuth shape exactly, generalized from "ClobAuth" to
// a venue-agnostic connect message.
func (s *Signer) ConnectHeaders(nonce int) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	sig, err := s.signConnect(timestamp, nonce)
	if err != nil {
		return nil, fmt.Errorf("venueauth: sign connect: %w", err)
	}

	return map[string]string{
		"X-VENUE-ADDRESS":   s.address.Hex(),
		"X-VENUE-SIGNATURE": sig,
		"X-VENUE-TIMESTAMP": timestamp,
		"X-VENUE-NONCE":     strconv.Itoa(nonce),
	}, nil
}

func (s *Signer) signConnect(timestamp string, nonce int) (string, error) {
	domain := apitypes.TypedDataDomain{
		Name:    "VenueConnectDomain",
		Version: "1",
		ChainId: (*ethmath.HexOrDecimal256)(new(big.Int).Set(s.chainID)),
	}
	types := apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
		},
		"VenueConnect": {
			{Name: "address", Type: "address"},
			{Name: "timestamp", Type: "string"},
			{Name: "nonce", Type: "uint256"},
			{Name: "message", Type: "string"},
		},
	}
	message := apitypes.TypedDataMessage{
		"address":   s.address.Hex(),
		"timestamp": timestamp,
		"nonce":     fmt.Sprintf("%d", nonce),
		"message":   "This message attests that I control the given wallet for venue connection",
	}

	typedData := apitypes.TypedData{
		Types:       types,
		PrimaryType: "VenueConnect",
		Domain:      domain,
		Message:     message,
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return "", fmt.Errorf("typed data hash: %w", err)
	}
	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign typed data: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + common.Bytes2Hex(sig), nil
}
