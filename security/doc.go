// Package security holds the TLS settings shared by the broker and cache
// connections of workflowd.
//
//	kafka:
//	  tls:
//	    ca_file: /etc/workflowd/ca.pem
//
//	redis:
//	  tls:
//	    ca_file: /etc/workflowd/ca.pem
//	    cert_file: /etc/workflowd/client.pem
//	    key_file: /etc/workflowd/client-key.pem
package security
