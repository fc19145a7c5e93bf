package main

import _ "embed"

// indexHTML is the embedded page template.
//
//go:embed web/index.html
var indexHTML string

// styleCSS is the embedded CSS stylesheet.
//
//go:embed web/style.css
var styleCSS string

// appJS is the embedded JavaScript that draws frames and sends commands.
//
//go:embed web/app.js
var appJS string

// faviconSVG is the embedded favicon.
//
//go:embed web/favicon.svg
var faviconSVG string
