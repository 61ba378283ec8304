// Package signer produces digitally signed copies of canonical XML
// documents. The cryptographic mechanics live in goxmldsig; this
// package only loads certificate material and frames errors.
package signer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/rezonia/facturador/internal/model"
)

// Signer returns a digitally signed version of a canonical XML
// document.
type Signer interface {
	Sign(ctx context.Context, canonicalXML []byte) ([]byte, error)
}

// XMLDSigSigner signs documents with an enveloped XMLDSig signature
// from an x509 key pair.
type XMLDSigSigner struct {
	cert tls.Certificate
	leaf *x509.Certificate
	now  func() time.Time
}

var _ Signer = (*XMLDSigSigner)(nil)

// NewXMLDSigSigner loads the certificate and key files. Missing or
// already expired material fails here with a SigningError, before any
// document is attempted.
func NewXMLDSigSigner(certFile, keyFile string) (*XMLDSigSigner, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, model.NewSigningError("loading certificate material", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, model.NewSigningError("parsing signing certificate", err)
	}
	s := &XMLDSigSigner{cert: cert, leaf: leaf, now: time.Now}
	if err := s.checkValidity(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *XMLDSigSigner) checkValidity() error {
	now := s.now()
	if now.After(s.leaf.NotAfter) {
		return model.NewSigningError("signing certificate expired "+s.leaf.NotAfter.Format("2006-01-02"), nil)
	}
	if now.Before(s.leaf.NotBefore) {
		return model.NewSigningError("signing certificate not yet valid", nil)
	}
	return nil
}

// Sign parses the document, appends an enveloped signature over its
// root element and serializes it back.
func (s *XMLDSigSigner) Sign(_ context.Context, canonicalXML []byte) ([]byte, error) {
	if err := s.checkValidity(); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(canonicalXML); err != nil {
		return nil, model.NewSigningError("parsing canonical XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, model.NewSigningError("empty canonical XML", nil)
	}

	signCtx := dsig.NewDefaultSigningContext(dsig.TLSCertKeyStore(s.cert))
	signed, err := signCtx.SignEnveloped(root)
	if err != nil {
		return nil, model.NewSigningError("producing enveloped signature", err)
	}

	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	out.SetRoot(signed)
	return out.WriteToBytes()
}
