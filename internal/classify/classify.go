// Package classify turns the heterogeneous errors produced by DNS
// resolution and HTTP probing into the stable, closed vocabulary of
// [status.Code] values.  It walks the error's causal chain with
// [errors.As]/[errors.Is] and matches the first recognized cause, mirroring
// the reference implementation's walk of an exception's class hierarchy and
// cause chain.
package classify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/miekg/dns"
	"github.com/repology/repology-linkchecker/internal/resolver"
	"github.com/repology/repology-linkchecker/internal/status"
	"golang.org/x/sys/unix"
)

// DNS classifies an error produced during host resolution into the DNS
// group of extended status codes.
func DNS(err error) (code status.Code) {
	if err == nil {
		return status.UnknownError
	}

	var rcodeErr *resolver.RcodeError
	if errors.As(err, &rcodeErr) {
		return classifyRcode(rcodeErr.Rcode)
	}

	if errors.Is(err, resolver.ErrNoAddressRecord) {
		return status.DNSNoAddressRecord
	}

	if errors.Is(err, resolver.ErrIPv4MappedInAAAA) {
		return status.DNSIPv4MappedInAAAA
	}

	if isTimeout(err) {
		return status.DNSTimeout
	}

	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.ECONNREFUSED:
			return status.DNSRefused
		case unix.EINVAL:
			return status.InvalidURL
		}
	}

	return status.DNSError
}

// classifyRcode maps a non-success DNS RCODE to its extended status code.
func classifyRcode(rcode int) (code status.Code) {
	switch rcode {
	case dns.RcodeNameError:
		return status.DNSDomainNotFound
	case dns.RcodeRefused:
		return status.DNSRefused
	default:
		return status.DNSError
	}
}

// HTTP classifies an error produced while probing a URL over HTTP into the
// generic, connection, HTTP, and SSL/TLS groups of extended status codes.
func HTTP(err error) (code status.Code) {
	if err == nil {
		return status.UnknownError
	}

	var invalidURL *InvalidURLError
	if errors.As(err, &invalidURL) {
		return status.InvalidURL
	}

	var tooMany *TooManyRedirectsError
	if errors.As(err, &tooMany) {
		return status.TooManyRedirects
	}

	var serverDisc *ServerDisconnectedError
	if errors.As(err, &serverDisc) {
		return status.ServerDisconnected
	}

	var badHTTP *BadHTTPError
	if errors.As(err, &badHTTP) {
		return status.BadHTTP
	}

	if code, ok := classifyTLS(err); ok {
		return code
	}

	if isTimeout(err) {
		return status.Timeout
	}

	var errno unix.Errno
	if errors.As(err, &errno) {
		return classifyErrno(errno)
	}

	log.Info("classify: unrecognized probe error: %v", err)

	return status.UnknownError
}

// classifyTLS recognizes the TLS/certificate-verification error shapes the
// standard library's crypto/tls and crypto/x509 packages produce, in place
// of the OpenSSL numeric verify codes the reference implementation
// inspects: 10 (expired) maps to [status.SSLCertificateHasExpired], 18
// (self-signed leaf) to [status.SSLCertificateSelfSigned], 20 (incomplete
// chain) to [status.SSLCertificateIncompleteChain], and 62 (hostname
// mismatch) to [status.SSLCertificateHostnameMismatch].  An unknown
// authority whose certificate is not self-signed also maps to
// [status.SSLCertificateIncompleteChain]; [status.SSLCertificateSelfSignedInChain]
// is never returned.
func classifyTLS(err error) (code status.Code, ok bool) {
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return status.SSLCertificateHostnameMismatch, true
	}

	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &invalidErr) {
		switch invalidErr.Reason {
		case x509.Expired:
			return status.SSLCertificateHasExpired, true
		case x509.TooManyIntermediates, x509.NameConstraintsWithoutSANs:
			return status.SSLCertificateIncompleteChain, true
		default:
			return status.SSLError, true
		}
	}

	var unknownAuthErr x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthErr) {
		if isSelfSigned(unknownAuthErr.Cert) {
			return status.SSLCertificateSelfSigned, true
		}

		return status.SSLCertificateIncompleteChain, true
	}

	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return status.SSLError, true
	}

	return 0, false
}

// isSelfSigned reports whether cert's issuer and subject are identical,
// the shape of a self-signed leaf (OpenSSL verify code 18).
func isSelfSigned(cert *x509.Certificate) (ok bool) {
	return cert != nil && cert.Issuer.String() == cert.Subject.String()
}

// classifyErrno maps a raw OS errno that escaped every other classifier
// layer to its extended status code.
func classifyErrno(errno unix.Errno) (code status.Code) {
	switch errno {
	case unix.ENETUNREACH:
		return status.NetworkUnreachable
	case unix.ECONNRESET:
		return status.ConnectionResetByPeer
	case unix.ECONNREFUSED:
		return status.ConnectionRefused
	case unix.EHOSTUNREACH:
		return status.HostUnreachable
	case unix.EADDRNOTAVAIL:
		return status.AddressNotAvailable
	case unix.ECONNABORTED:
		return status.ConnectionAborted
	case unix.EINVAL:
		return status.UnknownError
	default:
		return status.UnknownError
	}
}

// isTimeout reports whether err is, or wraps, a deadline/timeout error.
func isTimeout(err error) (ok bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
