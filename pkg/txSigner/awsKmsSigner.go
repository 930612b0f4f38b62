package txSigner

import (
	"context"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// AwsKmsSigner is an InteractiveSigner backed by an AWS KMS secp256k1 key.
// The secret never leaves KMS; the address is derived from the KMS public key
// and signatures are reassembled from the DER output with a recovered v byte.
// Plug it into frontend mode via SignerConfig.Interactive.
type AwsKmsSigner struct {
	kmsClient *kms.Client
	keyId     string
	logger    *zap.Logger
}

var _ InteractiveSigner = (*AwsKmsSigner)(nil)

// NewAwsKmsSigner creates a signer for the given KMS key id or ARN, using the
// default AWS credential chain for the given region.
func NewAwsKmsSigner(ctx context.Context, keyId string, region string, logger *zap.Logger) (*AwsKmsSigner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config for region %s", region)
	}

	return &AwsKmsSigner{
		kmsClient: kms.NewFromConfig(awsCfg),
		keyId:     keyId,
		logger:    logger,
	}, nil
}

// Address derives the Ethereum address from the KMS public key. This is a
// network call, which is why the frontend wrapper resolves it asynchronously.
func (a *AwsKmsSigner) Address(ctx context.Context) (common.Address, error) {
	out, err := a.kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(a.keyId),
	})
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "failed to get public key for KMS key %s", a.keyId)
	}

	pubKey, err := parseSPKIPublicKey(out.PublicKey)
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "failed to parse public key for KMS key %s", a.keyId)
	}

	ecdsaPubKey, err := crypto.UnmarshalPubkey(pubKey)
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "failed to unmarshal public key for KMS key %s", a.keyId)
	}

	return crypto.PubkeyToAddress(*ecdsaPubKey), nil
}

// SignMessage signs keccak256(message) with the KMS key and returns a 65-byte
// r||s||v signature in Ethereum's low-s form.
func (a *AwsKmsSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	digest := crypto.Keccak256(message)

	out, err := a.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(a.keyId),
		Message:          digest,
		MessageType:      kmstypes.MessageTypeDigest,
		SigningAlgorithm: kmstypes.SigningAlgorithmSpecEcdsaSha256,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "KMS signing failed for key %s", a.keyId)
	}

	r, s, err := parseDERSignature(out.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse KMS signature")
	}

	// Ethereum requires the low-s form
	curveN := crypto.S256().Params().N
	halfN := new(big.Int).Rsh(curveN, 1)
	if s.Cmp(halfN) > 0 {
		s = new(big.Int).Sub(curveN, s)
	}

	addr, err := a.Address(ctx)
	if err != nil {
		return nil, err
	}

	sig := make([]byte, 65)
	r.FillBytes(sig[0:32])
	s.FillBytes(sig[32:64])

	// KMS does not return the recovery id; try both and keep the one that
	// recovers the key's own address.
	for v := byte(0); v < 2; v++ {
		sig[64] = v
		recovered, err := crypto.SigToPub(digest, sig)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(*recovered) == addr {
			return sig, nil
		}
	}

	return nil, errors.Errorf("failed to determine recovery id for KMS key %s", a.keyId)
}

type spkiPublicKey struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// parseSPKIPublicKey extracts the uncompressed EC point from the DER
// SubjectPublicKeyInfo structure KMS returns.
func parseSPKIPublicKey(der []byte) ([]byte, error) {
	var spki spkiPublicKey
	if _, err := asn1.Unmarshal(der, &spki); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal SubjectPublicKeyInfo")
	}
	return spki.PublicKey.Bytes, nil
}

type derSignature struct {
	R *big.Int
	S *big.Int
}

// parseDERSignature parses an ASN.1 DER encoded ECDSA signature into r and s.
func parseDERSignature(der []byte) (*big.Int, *big.Int, error) {
	var sig derSignature
	if _, err := asn1.Unmarshal(der, &sig); err != nil {
		return nil, nil, errors.Wrap(err, "failed to unmarshal DER signature")
	}
	return sig.R, sig.S, nil
}
