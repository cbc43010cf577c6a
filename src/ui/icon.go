package ui

import "fyne.io/fyne/v2"

// trayIconSVG: a text caret inside a selection box with a spark.
const trayIconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="1.5" y="3" width="10" height="9" rx="1" fill="none" stroke="#0078d4" stroke-width="1.5" stroke-dasharray="2,1"/>
  <line x1="4" y1="6" x2="9" y2="6" stroke="#333333" stroke-width="1" stroke-linecap="round"/>
  <line x1="4" y1="9" x2="7.5" y2="9" stroke="#333333" stroke-width="1" stroke-linecap="round"/>
  <path d="M13 1 L13.8 3.2 L16 4 L13.8 4.8 L13 7 L12.2 4.8 L10 4 L12.2 3.2 Z" fill="#f2a900"/>
</svg>`

var trayIcon = fyne.NewStaticResource("ctrl-ai.svg", []byte(trayIconSVG))
